// Package cli implements the catalogctl command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/simp-lee/catalog/internal/app"
	"github.com/simp-lee/catalog/internal/config"
)

const defaultConfigPath = "configs/config.yaml"

// Options configures the command tree. Zero values use the process streams
// and app.New.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	NewApp func(cfg *config.Config) (*app.App, error)
}

// NewRootCommand creates catalogctl with its serve, migrate, resources and
// export subcommands.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.NewApp == nil {
		opts.NewApp = app.New
	}

	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Manage the catalog service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	var cfgPath string
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "config file path")

	// open loads the config and builds the application. Logs go to stderr so
	// that stdout stays usable for exported data. migrate controls whether
	// the configured auto migration runs.
	open := func(migrate bool) (*app.App, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg.Log.Console = opts.Stderr
		if !migrate {
			cfg.Database.AutoMigrate = false
		}
		return opts.NewApp(cfg)
	}

	root.AddCommand(
		newServeCommand(open),
		newMigrateCommand(open),
		newResourcesCommand(open),
		newExportCommand(open),
	)
	return root
}

type openFunc func(migrate bool) (*app.App, error)

func newServeCommand(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(true)
			if err != nil {
				return err
			}
			return a.Run()
		},
	}
}

func newMigrateCommand(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the tables of every resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Migrate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d resources\n", len(a.Modules()))
			return nil
		},
	}
}

func newResourcesCommand(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the catalog resources and export formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(false)
			if err != nil {
				return err
			}
			defer a.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RESOURCE\tEXPORT FORMATS")
			formats := strings.Join(a.ExportFormats(), ",")
			for _, m := range a.Modules() {
				fmt.Fprintf(tw, "%s\t%s\n", m.Name(), formats)
			}
			return tw.Flush()
		},
	}
}
