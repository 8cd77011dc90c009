package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/attendance-hq/apiserver/internal/store"
	"github.com/attendance-hq/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context) ([]types.User, error)
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id string) error
}

// UserEmployees lists the employees owned by a user.
type UserEmployees interface {
	ListByUser(ctx context.Context, userID string) ([]types.Employee, error)
}

// CreateUserInput holds the fields of a new account.
type CreateUserInput struct {
	Email          string
	Password       string
	Name           string
	Role           string
	ProfilePicture string
}

// UpdateUserInput holds a partial update. Nil fields are left unchanged.
type UpdateUserInput struct {
	Email          *string
	Password       *string
	Name           *string
	Role           *string
	ProfilePicture *string
}

// UserService encapsulates user and authentication use-cases.
type UserService struct {
	repo      UserRepository
	employees UserEmployees
	hashCost  int
	dummyHash []byte
}

func NewUserService(repo UserRepository, employees UserEmployees) *UserService {
	return NewUserServiceWithCost(repo, employees, bcrypt.DefaultCost)
}

// NewUserServiceWithCost uses the given bcrypt cost for new password hashes.
func NewUserServiceWithCost(repo UserRepository, employees UserEmployees, cost int) *UserService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("attendance-dummy-password"), cost)
	return &UserService{repo: repo, employees: employees, hashCost: cost, dummyHash: dummy}
}

// HashPassword returns the bcrypt hash of password.
func (s *UserService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Authenticate verifies email and password. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return types.User{}, BadRequest("email and password required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// Keep the response time of unknown emails close to wrong passwords.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return types.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return types.User{}, Internal("failed to authenticate", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) withEmployees(ctx context.Context, user types.User) (types.User, error) {
	employees, err := s.employees.ListByUser(ctx, user.ID)
	if err != nil {
		return types.User{}, Internal("failed to load user employees", err)
	}
	user.Employees = employees
	return user, nil
}

// Profile returns the user with the employees it owns.
func (s *UserService) Profile(ctx context.Context, id string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, userReadError(err)
	}
	return s.withEmployees(ctx, user)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, Internal("failed to list users", err)
	}
	for i := range users {
		if users[i], err = s.withEmployees(ctx, users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", BadRequest("invalid email address")
	}
	return email, nil
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (types.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return types.User{}, err
	}
	if input.Password == "" {
		return types.User{}, BadRequest("password required")
	}

	role := types.RoleUser
	if strings.TrimSpace(input.Role) != "" {
		parsed, ok := types.ParseRole(input.Role)
		if !ok {
			return types.User{}, BadRequest("invalid role, must be one of: ADMIN, USER")
		}
		role = parsed
	}

	hash, err := s.HashPassword(input.Password)
	if err != nil {
		return types.User{}, Internal("failed to hash password", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Email:          email,
		Name:           strings.TrimSpace(input.Name),
		Role:           role,
		ProfilePicture: strings.TrimSpace(input.ProfilePicture),
		PasswordHash:   hash,
	})
	if err != nil {
		return types.User{}, userWriteError(err)
	}
	user.Employees = []types.Employee{}
	return user, nil
}

// Update applies an administrative partial update.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, userReadError(err)
	}

	if input.Email != nil {
		if user.Email, err = normalizeEmail(*input.Email); err != nil {
			return types.User{}, err
		}
	}
	if input.Role != nil {
		role, ok := types.ParseRole(*input.Role)
		if !ok {
			return types.User{}, BadRequest("invalid role, must be one of: ADMIN, USER")
		}
		user.Role = role
	}
	if input.Password != nil {
		if *input.Password == "" {
			return types.User{}, BadRequest("password must not be empty")
		}
		if user.PasswordHash, err = s.HashPassword(*input.Password); err != nil {
			return types.User{}, Internal("failed to hash password", err)
		}
	}
	applyProfile(&user, input.Name, input.ProfilePicture)

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, userWriteError(err)
	}
	return s.withEmployees(ctx, updated)
}

// UpdateProfile lets a user change their own display name and picture.
func (s *UserService) UpdateProfile(ctx context.Context, id string, name, profilePicture *string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, userReadError(err)
	}
	applyProfile(&user, name, profilePicture)

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, userWriteError(err)
	}
	return s.withEmployees(ctx, updated)
}

func applyProfile(user *types.User, name, profilePicture *string) {
	if name != nil {
		user.Name = strings.TrimSpace(*name)
	}
	if profilePicture != nil {
		user.ProfilePicture = normalizeProfileImage(*profilePicture)
	}
}

// Delete removes a user that owns no employees.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return userReadError(err)
	}

	owned, err := s.employees.ListByUser(ctx, user.ID)
	if err != nil {
		return Internal("failed to load user employees", err)
	}
	if len(owned) > 0 {
		return Conflict("cannot delete user with associated employees")
	}

	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return userWriteError(err)
	}
	return nil
}

func userReadError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return Internal("failed to load user", err)
}

func userWriteError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrConflict):
		return Conflict("email already exists")
	case errors.Is(err, store.ErrForeignKey):
		return Conflict("cannot delete user with associated employees")
	default:
		return Internal("failed to write user", err)
	}
}
