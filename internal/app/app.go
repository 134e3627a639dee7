package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/catalog/internal/catalog"
	"github.com/simp-lee/catalog/internal/config"
	"github.com/simp-lee/catalog/internal/export"
	"github.com/simp-lee/catalog/internal/middleware"
)

const (
	defaultReadTimeout     = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine  *gin.Engine
	db      *gorm.DB
	logger  *logger.Logger
	cfg     *config.Config
	modules []Module
	formats []string
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, readTimeout time.Duration) httpServer {
	// No write timeout: exports stream for as long as the result set takes.
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires an App from cfg: logger, database, export formats,
// resource modules, optional migration, middleware and routes. The server
// binary and the CLI share it.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	success := false

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if !success {
			closeLogger(log)
		}
	}()

	db, err := config.SetupDatabase(&cfg.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if !success {
			closeDatabase(db, log.Logger)
		}
	}()

	registry, err := export.NewRegistryFor(cfg.Export.Formats)
	if err != nil {
		return nil, fmt.Errorf("setup exporters: %w", err)
	}

	modules, err := BuildModules(catalog.Deps{
		DB:              db,
		Exporters:       registry,
		ExportChunkSize: cfg.Export.ChunkSize,
		Logger:          log.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build modules: %w", err)
	}

	a := &App{
		db:      db,
		logger:  log,
		cfg:     cfg,
		modules: modules,
		formats: registry.Formats(),
	}

	if cfg.Database.AutoMigrate {
		if err := a.Migrate(); err != nil {
			return nil, err
		}
	}

	if a.engine, err = a.buildEngine(); err != nil {
		return nil, err
	}

	success = true
	return a, nil
}

func (a *App) buildEngine() (*gin.Engine, error) {
	gin.SetMode(a.cfg.Server.Mode)
	engine := gin.New()

	if a.cfg.Server.Mode == gin.DebugMode && a.cfg.Server.Host == "0.0.0.0" {
		a.Logger().Warn("debug mode listening on all interfaces")
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}

	engine.Use(
		middleware.Recovery(a.Logger()),
		middleware.RequestID(),
		middleware.AccessLog(a.Logger(), skipAccessLog(metricsPath)...),
		middleware.CORS(a.cfg.Server.CORS),
	)
	if a.cfg.Metrics.Enabled {
		engine.Use(middleware.Metrics())
	}

	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:       a.modules,
		DB:            a.db,
		ExportFormats: a.formats,
		MetricsPath:   metricsPath,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}
	return engine, nil
}

// Migrate creates or updates the tables of every module.
func (a *App) Migrate() error {
	var models []any
	for _, m := range a.modules {
		models = append(models, m.Models()...)
	}
	return config.Migrate(a.db, a.Logger(), models...)
}

// Modules returns the resource modules in registration order.
func (a *App) Modules() []Module { return a.modules }

// Module returns the module serving resource name.
func (a *App) Module(name string) (Module, bool) {
	for _, m := range a.modules {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// ExportFormats returns the enabled export formats.
func (a *App) ExportFormats() []string { return a.formats }

// Handler returns the HTTP handler of the application.
func (a *App) Handler() http.Handler { return a.engine }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger.Logger
}

// Close releases the database connection and flushes the logger.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.db != nil {
		closeDatabase(a.db, a.Logger())
	}
	closeLogger(a.logger)
	return nil
}

// Run starts the HTTP server and blocks until a shutdown signal is received,
// then drains in-flight requests within the configured shutdown timeout and
// closes the App.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}
	defer func() { _ = a.Close() }()

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, durationOr(a.cfg.Server.Timeout, defaultReadTimeout))

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger().Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.Logger().Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), durationOr(a.cfg.Server.ShutdownTimeout, defaultShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger().Error("server shutdown error", slog.Any("error", err))
	}
	a.Logger().Info("server stopped")
	return nil
}

// durationOr parses v, falling back to def when v is empty. v has already
// been validated by config.Validate.
func durationOr(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func closeDatabase(db *gorm.DB, log *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("database close error", slog.Any("error", err))
	}
}

func closeLogger(log *logger.Logger) {
	if log == nil {
		return
	}
	if err := log.Close(); err != nil {
		slog.Error("logger close error", slog.Any("error", err))
	}
}
