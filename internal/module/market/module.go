// Package market serves the markets catalog resource.
package market

import (
	"fmt"

	"github.com/simp-lee/catalog/internal/catalog"
	"github.com/simp-lee/catalog/internal/domain"
	"github.com/simp-lee/catalog/internal/pkg"
)

const Resource = "markets"

// Module is the markets resource module.
type Module = catalog.Module[domain.Market, CreateRequest, UpdateRequest]

var repositoryOptions = catalog.Options{
	Searchable: []string{"name", "code", "region"},
	Sortable:   []string{"name", "code", "region", "priority", "created_at", "updated_at"},
	Filterable: []string{"name", "code", "region", "priority", "active", "created_at"},
}

var exportColumns = []string{"id", "uuid", "name", "code", "region", "priority", "active", "created_at"}

// New builds the markets module. Rows are the plain column attributes.
func New(deps catalog.Deps) (*Module, error) {
	repo, err := catalog.NewRepository[domain.Market](deps.DB, repositoryOptions)
	if err != nil {
		return nil, fmt.Errorf("%s repository: %w", Resource, err)
	}

	opts := catalog.ServiceOptionsFrom[domain.Market](deps, Resource)
	opts.DefaultColumns = exportColumns
	svc := catalog.NewService[domain.Market](repo, pkg.NewTxManager(deps.DB), opts)

	return catalog.NewModule[domain.Market, CreateRequest, UpdateRequest](svc), nil
}
