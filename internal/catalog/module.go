package catalog

import (
	"context"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/catalog/internal/domain"
)

// Deps are the shared dependencies resource modules are built from.
type Deps struct {
	DB              *gorm.DB
	Exporters       ExporterResolver
	ExportChunkSize int
	Logger          *slog.Logger
}

// ServiceOptionsFrom returns the options of a service for resource with the
// shared parts taken from d.
func ServiceOptionsFrom[T any](d Deps, resource string) ServiceOptions[T] {
	return ServiceOptions[T]{
		Resource:        resource,
		Exporters:       d.Exporters,
		ExportChunkSize: d.ExportChunkSize,
		Logger:          d.Logger,
	}
}

// Module bundles the service and HTTP handler of one catalog resource and
// implements app.Module.
type Module[T any, C Input[T], U Patch] struct {
	name    string
	models  []any
	svc     *Service[T]
	handler *Handler[T, C, U]
}

// NewModule creates the module for the resource served by svc. models are
// the tables the resource needs migrated, the resource model first.
// Panics if svc is nil.
func NewModule[T any, C Input[T], U Patch](svc *Service[T], models ...any) *Module[T, C, U] {
	if svc == nil {
		panic("catalog.NewModule: service must not be nil")
	}
	if len(models) == 0 {
		models = []any{new(T)}
	}
	return &Module[T, C, U]{
		name:    svc.Resource(),
		models:  models,
		svc:     svc,
		handler: NewHandler[T, C, U](svc),
	}
}

// Name returns the resource name, which is also its route prefix.
func (m *Module[T, C, U]) Name() string { return m.name }

// Models returns the models to migrate.
func (m *Module[T, C, U]) Models() []any { return m.models }

// Service returns the resource service.
func (m *Module[T, C, U]) Service() *Service[T] { return m.svc }

// RegisterRoutes mounts the resource under api/<name>.
func (m *Module[T, C, U]) RegisterRoutes(api *gin.RouterGroup) {
	m.handler.Register(api.Group("/" + m.name))
}

// ExportTo writes every row matching q to w and returns the suggested
// filename and the number of rows written.
func (m *Module[T, C, U]) ExportTo(ctx context.Context, w io.Writer, q domain.ListQuery, format string, columns []string) (string, int, error) {
	stream, err := m.svc.Export(ctx, q, format, columns, "")
	if err != nil {
		return "", 0, err
	}
	n, err := stream.Write(w)
	return stream.Filename, n, err
}
