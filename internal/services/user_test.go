package services

import (
	"context"
	"testing"

	"github.com/attendance-hq/apiserver/internal/store/memstore"
	"github.com/attendance-hq/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(s *memstore.Store) *UserService {
	return NewUserServiceWithCost(s.Users, s.Employees, bcrypt.MinCost)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memstore.New())
	created, err := svc.Create(ctx, CreateUserInput{Email: "Admin@Example.com", Password: "s3cret", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", created.Email)
	assert.Equal(t, types.RoleAdmin, created.Role)
	assert.NotEqual(t, "s3cret", created.PasswordHash)

	user, err := svc.Authenticate(ctx, "ADMIN@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Authenticate(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "", "")
	assert.Equal(t, KindBadRequest, KindOf(err))
}

func TestCreateUserValidation(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memstore.New())

	_, err := svc.Create(ctx, CreateUserInput{Email: "not-an-email", Password: "x"})
	assert.Equal(t, KindBadRequest, KindOf(err))
	_, err = svc.Create(ctx, CreateUserInput{Email: "a@example.com", Password: "x", Role: "ROOT"})
	assert.Equal(t, KindBadRequest, KindOf(err))

	user, err := svc.Create(ctx, CreateUserInput{Email: "a@example.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, types.RoleUser, user.Role)

	_, err = svc.Create(ctx, CreateUserInput{Email: "A@example.com", Password: "y"})
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestProfileIncludesEmployees(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := newUserService(s)
	user, err := svc.Create(ctx, CreateUserInput{Email: "a@example.com", Password: "x"})
	require.NoError(t, err)
	_, err = s.Employees.Create(ctx, types.Employee{CustomID: "EMP001", Name: "Ada", Designation: "Engineer", Status: types.EmployeeStatusActive, UserID: user.ID})
	require.NoError(t, err)

	profile, err := svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, profile.Employees, 1)
	assert.Equal(t, "EMP001", profile.Employees[0].CustomID)

	_, err = svc.Profile(ctx, "4a5b6c7d-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(memstore.New())
	user, err := svc.Create(ctx, CreateUserInput{Email: "a@example.com", Password: "old"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateUserInput{Email: "b@example.com", Password: "x"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, user.ID, UpdateUserInput{Role: strPtr("ADMIN"), Password: strPtr("new"), Name: strPtr(" Ada ")})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, updated.Role)
	assert.Equal(t, "Ada", updated.Name)

	_, err = svc.Authenticate(ctx, "a@example.com", "new")
	assert.NoError(t, err)

	_, err = svc.Update(ctx, user.ID, UpdateUserInput{Email: strPtr("b@example.com")})
	assert.Equal(t, KindConflict, KindOf(err))

	profile, err := svc.UpdateProfile(ctx, user.ID, nil, strPtr("/api/files/me.png"))
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, "/api/files/me.png", profile.ProfilePicture)
}

func TestDeleteUserWithEmployeesConflicts(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := newUserService(s)
	user, err := svc.Create(ctx, CreateUserInput{Email: "a@example.com", Password: "x"})
	require.NoError(t, err)
	employee, err := s.Employees.Create(ctx, types.Employee{CustomID: "EMP001", Name: "Ada", Designation: "Engineer", Status: types.EmployeeStatusActive, UserID: user.ID})
	require.NoError(t, err)

	err = svc.Delete(ctx, user.ID)
	assert.Equal(t, KindConflict, KindOf(err))

	employee.UserID = ""
	_, err = s.Employees.Update(ctx, employee)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, user.ID))

	err = svc.Delete(ctx, user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
