// Package bank serves the banks catalog resource and its branches.
package bank

import (
	"context"
	"fmt"

	"github.com/simp-lee/catalog/internal/catalog"
	"github.com/simp-lee/catalog/internal/domain"
	"github.com/simp-lee/catalog/internal/pkg"
)

const Resource = "banks"

// Module is the banks resource module.
type Module = catalog.Module[domain.Bank, CreateRequest, UpdateRequest]

var repositoryOptions = catalog.Options{
	Searchable: []string{"name", "code", "swift_code"},
	Sortable:   []string{"name", "code", "country", "created_at", "updated_at"},
	Filterable: []string{"name", "code", "swift_code", "country", "active", "created_at"},
}

var exportColumns = []string{"id", "uuid", "name", "code", "swift", "country", "active", "created_at"}

// ErrLastActiveBank is returned when a change would leave no active bank.
var ErrLastActiveBank = domain.Invalid("cannot deactivate the last active bank")

// New builds the banks module.
func New(deps catalog.Deps) (*Module, error) {
	repo, err := catalog.NewRepository[domain.Bank](deps.DB, repositoryOptions)
	if err != nil {
		return nil, fmt.Errorf("%s repository: %w", Resource, err)
	}

	opts := catalog.ServiceOptionsFrom[domain.Bank](deps, Resource)
	opts.DefaultColumns = exportColumns
	opts.ToRow = toRow(repo)
	opts.ActivationGuard = lastActiveGuard(repo)
	svc := catalog.NewService[domain.Bank](repo, pkg.NewTxManager(deps.DB), opts)

	return catalog.NewModule[domain.Bank, CreateRequest, UpdateRequest](svc, &domain.Bank{}, &domain.BankBranch{}), nil
}

// toRow publishes swift_code as "swift" and inlines loaded branches.
func toRow(repo *catalog.Repository[domain.Bank]) func(*domain.Bank) domain.Row {
	return func(b *domain.Bank) domain.Row {
		row := repo.Attributes(b)
		row["swift"] = row["swift_code"]
		delete(row, "swift_code")

		if len(b.Branches) > 0 {
			branches := make([]domain.Row, len(b.Branches))
			for i, br := range b.Branches {
				branches[i] = domain.Row{"id": br.ID, "name": br.Name, "city": br.City}
			}
			row["branches"] = branches
		}
		return row
	}
}

// lastActiveGuard refuses to deactivate the only active bank. It runs with
// the bank row locked, inside the SetActive transaction, and locks every
// active bank while counting so concurrent deactivations serialize.
func lastActiveGuard(repo *catalog.Repository[domain.Bank]) func(context.Context, *domain.Bank, bool) error {
	return func(ctx context.Context, b *domain.Bank, active bool) error {
		if active || !b.Active {
			return nil
		}
		n, err := repo.CountForUpdate(ctx, domain.Filter{Column: "active", Value: domain.Equals(true)})
		if err != nil {
			return err
		}
		if n <= 1 {
			return ErrLastActiveBank
		}
		return nil
	}
}
