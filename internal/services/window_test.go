package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindow(t *testing.T) {
	value := time.Date(2026, 3, 10, 23, 59, 0, 0, testZone)
	start, end := DayWindow(value, testZone)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, testZone), start)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, testZone), end)

	// 20:00 UTC is already the next day five hours east.
	start, _ = DayWindow(time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC), testZone)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, testZone), start)
}

func TestParseDateBound(t *testing.T) {
	bound, err := ParseDateBound("", testZone)
	require.NoError(t, err)
	assert.Nil(t, bound)

	bound, err = ParseDateBound("2026-03-10", testZone)
	require.NoError(t, err)
	assert.True(t, bound.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, testZone)))

	bound, err = ParseDateBound("2026-03-10T04:30:00Z", testZone)
	require.NoError(t, err)
	assert.True(t, bound.Equal(time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC)))

	_, err = ParseDateBound("10/03/2026", testZone)
	assert.Error(t, err)
}
