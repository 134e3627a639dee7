package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/catalog/internal/metrics"
	"github.com/simp-lee/catalog/internal/pkg"
)

const healthPingTimeout = time.Second

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules       []Module
	DB            *gorm.DB
	ExportFormats []string
	// MetricsPath mounts the Prometheus endpoint; empty disables it.
	MetricsPath string
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}

	r.GET("/health", healthHandler(deps.DB))
	if deps.MetricsPath != "" {
		r.GET(deps.MetricsPath, gin.WrapH(metrics.Handler()))
	}

	api := r.Group("/api/v1")

	seen := make(map[string]bool, len(deps.Modules))
	names := make([]string, 0, len(deps.Modules))
	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		if seen[m.Name()] {
			return fmt.Errorf("duplicate module %q", m.Name())
		}
		seen[m.Name()] = true
		names = append(names, m.Name())
		m.RegisterRoutes(api)
	}
	api.GET("/resources", resourcesHandler(names, deps.ExportFormats))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, pkg.Response{Code: http.StatusNotFound, Message: "not found"})
	})

	return nil
}

// resourcesHandler lists the served resources and the enabled export formats.
func resourcesHandler(names, formats []string) gin.HandlerFunc {
	if formats == nil {
		formats = []string{}
	}
	return func(c *gin.Context) {
		pkg.Success(c, gin.H{"resources": names, "export_formats": formats})
	}
}

// healthHandler pings the database within the request context.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := pingDatabase(c.Request.Context(), db); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "degraded",
				"components": gin.H{"database": "error"},
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"components": gin.H{"database": "ok"},
		})
	}
}

func pingDatabase(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database is not configured")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// skipAccessLog lists the paths whose requests are not access-logged.
func skipAccessLog(metricsPath string) []string {
	paths := []string{"/health"}
	if p := strings.TrimSpace(metricsPath); p != "" {
		paths = append(paths, p)
	}
	return paths
}
