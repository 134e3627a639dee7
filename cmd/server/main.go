package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/simp-lee/catalog/internal/app"
	"github.com/simp-lee/catalog/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("catalog server stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	names := make([]string, 0, len(a.Modules()))
	for _, m := range a.Modules() {
		names = append(names, m.Name())
	}
	a.Logger().Info("catalog server starting", "resources", names, "export_formats", a.ExportFormats())

	return a.Run()
}
