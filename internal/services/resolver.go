package services

import (
	"context"
	"errors"
	"strings"

	"github.com/attendance-hq/apiserver/internal/store"
	"github.com/attendance-hq/apiserver/types"
)

// EmployeeLookup is the read surface the resolver needs.
type EmployeeLookup interface {
	GetByID(ctx context.Context, id string) (types.Employee, error)
	GetByCustomID(ctx context.Context, customID string) (types.Employee, error)
}

// LookupStrategy finds an employee by one kind of identifier. Find returns
// store.ErrNotFound on a miss.
type LookupStrategy struct {
	Name string
	Find func(ctx context.Context, identifier string) (types.Employee, error)
}

// ByCustomID matches the human-assigned employee code exactly.
func ByCustomID(lookup EmployeeLookup) LookupStrategy {
	return LookupStrategy{Name: "custom_id", Find: lookup.GetByCustomID}
}

// ByInternalID matches the store-assigned identity exactly.
func ByInternalID(lookup EmployeeLookup) LookupStrategy {
	return LookupStrategy{Name: "internal_id", Find: lookup.GetByID}
}

// EmployeeResolver maps a caller-supplied identifier to an employee by trying
// each strategy in order and returning the first hit.
type EmployeeResolver struct {
	strategies []LookupStrategy
}

// NewEmployeeResolver resolves custom ids first, then internal ids.
func NewEmployeeResolver(lookup EmployeeLookup) *EmployeeResolver {
	return NewEmployeeResolverWith(ByCustomID(lookup), ByInternalID(lookup))
}

func NewEmployeeResolverWith(strategies ...LookupStrategy) *EmployeeResolver {
	return &EmployeeResolver{strategies: strategies}
}

// Resolve returns ErrEmployeeNotFound when no strategy matches.
func (r *EmployeeResolver) Resolve(ctx context.Context, identifier string) (types.Employee, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return types.Employee{}, ErrEmployeeIDRequired
	}

	for _, strategy := range r.strategies {
		employee, err := strategy.Find(ctx, identifier)
		if err == nil {
			return employee, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return types.Employee{}, Internal("failed to resolve employee by "+strategy.Name, err)
		}
	}
	return types.Employee{}, ErrEmployeeNotFound
}
