package services

import (
	"context"
	"errors"
	"testing"

	"github.com/attendance-hq/apiserver/internal/store"
	"github.com/attendance-hq/apiserver/internal/store/memstore"
	"github.com/attendance-hq/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCustomAndInternalIDsAgree(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	employee, err := s.Employees.Create(ctx, types.Employee{CustomID: "EMP001", Name: "Ada", Designation: "Engineer", Status: types.EmployeeStatusActive})
	require.NoError(t, err)

	resolver := NewEmployeeResolver(s.Employees)
	byCustom, err := resolver.Resolve(ctx, "EMP001")
	require.NoError(t, err)
	byInternal, err := resolver.Resolve(ctx, employee.ID)
	require.NoError(t, err)
	assert.Equal(t, byCustom, byInternal)

	_, err = resolver.Resolve(ctx, "emp001")
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResolveCustomIDWins(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	target := s.Employees.Insert(types.Employee{Name: "Internal", Designation: "Clerk"})
	shadow := s.Employees.Insert(types.Employee{CustomID: target.ID, Name: "Custom", Designation: "Clerk"})

	resolved, err := NewEmployeeResolver(s.Employees).Resolve(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, shadow.ID, resolved.ID)
}

func TestResolveStopsOnStoreFailure(t *testing.T) {
	calls := 0
	failing := LookupStrategy{Name: "broken", Find: func(ctx context.Context, identifier string) (types.Employee, error) {
		calls++
		return types.Employee{}, errors.New("connection reset")
	}}
	never := LookupStrategy{Name: "never", Find: func(ctx context.Context, identifier string) (types.Employee, error) {
		t.Fatal("second strategy must not run after a store failure")
		return types.Employee{}, nil
	}}

	_, err := NewEmployeeResolverWith(failing, never).Resolve(context.Background(), "EMP001")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, 1, calls)
}

func TestResolveEmptyIdentifier(t *testing.T) {
	_, err := NewEmployeeResolver(memstore.New().Employees).Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmployeeIDRequired)
	assert.Equal(t, KindBadRequest, KindOf(err))
}
