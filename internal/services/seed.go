package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/attendance-hq/apiserver/types"
	"gopkg.in/yaml.v3"
)

// SeedAccount is a bootstrap login provisioned from the seed file.
type SeedAccount struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
}

// SeedEmployee is a sample employee provisioned from the seed file.
type SeedEmployee struct {
	CustomID    string `yaml:"customId"`
	Name        string `yaml:"name"`
	Designation string `yaml:"designation"`
	Status      string `yaml:"status"`
}

// SeedFile is the document loaded by LoadSeedFile.
type SeedFile struct {
	Accounts  []SeedAccount  `yaml:"accounts"`
	Employees []SeedEmployee `yaml:"employees"`
}

// ParseSeedFile decodes and validates a YAML seed document.
func ParseSeedFile(data []byte) (SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return SeedFile{}, fmt.Errorf("decode seed file: %w", err)
	}

	for i, account := range seed.Accounts {
		if strings.TrimSpace(account.Email) == "" || account.Password == "" {
			return SeedFile{}, fmt.Errorf("seed account %d: email and password are required", i)
		}
		if _, ok := types.ParseRole(account.Role); !ok {
			return SeedFile{}, fmt.Errorf("seed account %s: invalid role %q", account.Email, account.Role)
		}
	}
	for i, employee := range seed.Employees {
		if strings.TrimSpace(employee.CustomID) == "" || strings.TrimSpace(employee.Name) == "" || strings.TrimSpace(employee.Designation) == "" {
			return SeedFile{}, fmt.Errorf("seed employee %d: customId, name and designation are required", i)
		}
		if employee.Status != "" {
			if _, ok := types.ParseEmployeeStatus(employee.Status); !ok {
				return SeedFile{}, fmt.Errorf("seed employee %s: invalid status %q", employee.CustomID, employee.Status)
			}
		}
	}
	return seed, nil
}

// LoadSeedFile reads and parses the seed file at path.
func LoadSeedFile(path string) (SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeedFile(data)
}

// SeedUserStore upserts users by email.
type SeedUserStore interface {
	UpsertByEmail(ctx context.Context, user types.User) (types.User, error)
}

// SeedEmployeeStore upserts employees by custom id.
type SeedEmployeeStore interface {
	UpsertByCustomID(ctx context.Context, employee types.Employee) (types.Employee, error)
}

// Seeder provisions bootstrap accounts and sample employees idempotently.
type Seeder struct {
	users     SeedUserStore
	employees SeedEmployeeStore
	hasher    func(password string) (string, error)
	logger    *slog.Logger
}

func NewSeeder(users SeedUserStore, employees SeedEmployeeStore, hasher func(string) (string, error), logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{users: users, employees: employees, hasher: hasher, logger: logger}
}

// Apply upserts every account and employee in seed. Existing accounts get
// their password and role reset; existing employees keep their identity.
func (s *Seeder) Apply(ctx context.Context, seed SeedFile) error {
	for _, account := range seed.Accounts {
		hash, err := s.hasher(account.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", account.Email, err)
		}
		role, _ := types.ParseRole(account.Role)
		user, err := s.users.UpsertByEmail(ctx, types.User{
			Email:        strings.ToLower(strings.TrimSpace(account.Email)),
			Name:         strings.TrimSpace(account.Name),
			Role:         role,
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("seed account %s: %w", account.Email, err)
		}
		s.logger.InfoContext(ctx, "seeded account", "email", user.Email, "role", user.Role)
	}

	for _, seeded := range seed.Employees {
		status := types.EmployeeStatusActive
		if seeded.Status != "" {
			status, _ = types.ParseEmployeeStatus(seeded.Status)
		}
		employee, err := s.employees.UpsertByCustomID(ctx, types.Employee{
			CustomID:    strings.TrimSpace(seeded.CustomID),
			Name:        strings.TrimSpace(seeded.Name),
			Designation: strings.TrimSpace(seeded.Designation),
			Status:      status,
		})
		if err != nil {
			return fmt.Errorf("seed employee %s: %w", seeded.CustomID, err)
		}
		s.logger.InfoContext(ctx, "seeded employee", "custom_id", employee.CustomID, "employee_id", employee.ID)
	}
	return nil
}
