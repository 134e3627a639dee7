package app

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/catalog/internal/catalog"
	"github.com/simp-lee/catalog/internal/domain"
	"github.com/simp-lee/catalog/internal/module/bank"
	"github.com/simp-lee/catalog/internal/module/market"
)

// Module is one catalog resource as seen by the server and the CLI.
type Module interface {
	// Name is the resource name and route prefix.
	Name() string
	// Models are the tables the resource needs migrated.
	Models() []any
	RegisterRoutes(api *gin.RouterGroup)
	// ExportTo writes every row matching q to w in format and returns the
	// suggested filename and the number of rows written.
	ExportTo(ctx context.Context, w io.Writer, q domain.ListQuery, format string, columns []string) (string, int, error)
}

var (
	_ Module = (*market.Module)(nil)
	_ Module = (*bank.Module)(nil)
)

// BuildModules creates every resource module served by the application.
func BuildModules(deps catalog.Deps) ([]Module, error) {
	m, err := market.New(deps)
	if err != nil {
		return nil, err
	}
	b, err := bank.New(deps)
	if err != nil {
		return nil, err
	}
	return []Module{m, b}, nil
}
