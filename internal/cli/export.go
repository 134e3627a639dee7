package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simp-lee/catalog/internal/domain"
)

type exportFlags struct {
	format    string
	columns   []string
	output    string
	filters   []string
	search    string
	sort      string
	direction string
	trashed   string
}

func newExportCommand(open openFunc) *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Export the rows of a resource to a file or stdout",
		Example: `  catalogctl export banks --format xlsx --output exports/
  catalogctl export markets --filter region=EU --filter priority_between=1,5 --columns id,name,code`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query()
			if err != nil {
				return err
			}

			a, err := open(false)
			if err != nil {
				return err
			}
			defer a.Close()

			m, ok := a.Module(args[0])
			if !ok {
				return fmt.Errorf("unknown resource %q", args[0])
			}

			run := func(w io.Writer) (string, int, error) {
				return m.ExportTo(cmd.Context(), w, q, f.format, f.columns)
			}

			dest, n, err := writeExport(f.output, cmd.OutOrStdout(), run)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d rows to %s\n", n, dest)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.format, "format", "f", "csv", "export format")
	flags.StringSliceVar(&f.columns, "columns", nil, "columns to export (default: the resource's export columns)")
	flags.StringVarP(&f.output, "output", "o", "-", `output file or directory; "-" writes to stdout`)
	flags.StringArrayVar(&f.filters, "filter", nil, "filter as key=value, e.g. region=EU, name_like=bank, priority_in=1,2")
	flags.StringVar(&f.search, "search", "", "free-text search term")
	flags.StringVar(&f.sort, "sort", "", "sort column")
	flags.StringVar(&f.direction, "direction", "asc", "sort direction (asc or desc)")
	flags.StringVar(&f.trashed, "trashed", "", `include soft-deleted rows: "with" or "only"`)
	return cmd
}

// query builds the export query from the flags.
func (f exportFlags) query() (domain.ListQuery, error) {
	raw, err := parseFilterFlags(f.filters)
	if err != nil {
		return domain.ListQuery{}, err
	}

	opts := []domain.ListQueryOption{
		domain.WithSearch(f.search),
		domain.WithTrashed(domain.ParseTrashedMode(f.trashed)),
		domain.WithFilters(domain.ParseFilters(raw)...),
	}
	if f.sort != "" {
		opts = append(opts, domain.WithSort(f.sort, domain.ParseSortDirection(f.direction)))
	}
	return domain.NewListQuery(opts...), nil
}

// parseFilterFlags turns key=value flags into the untyped filter map.
// Repeated keys collect their values in a list.
func parseFilterFlags(values []string) (map[string]any, error) {
	raw := make(map[string]any, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: want key=value", v)
		}
		switch prev := raw[key].(type) {
		case nil:
			raw[key] = value
		case string:
			raw[key] = []string{prev, value}
		case []string:
			raw[key] = append(prev, value)
		}
	}
	return raw, nil
}

// writeExport runs export against the destination named by output: stdout
// for "-", a file named after the suggested filename inside an existing
// directory, or the given file path. It returns where the data went.
func writeExport(output string, stdout io.Writer, export func(io.Writer) (string, int, error)) (string, int, error) {
	if output == "" || output == "-" {
		_, n, err := export(stdout)
		return "stdout", n, err
	}

	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return exportIntoDir(output, export)
	}

	file, err := os.Create(output)
	if err != nil {
		return "", 0, fmt.Errorf("create output: %w", err)
	}
	_, n, err := export(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(output)
		return "", n, err
	}
	return output, n, nil
}

// exportIntoDir writes to a temporary file first because the final name is
// only known once the export has run.
func exportIntoDir(dir string, export func(io.Writer) (string, int, error)) (string, int, error) {
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", 0, fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	name, n, err := export(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", n, err
	}

	dest := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", n, fmt.Errorf("move export into place: %w", err)
	}
	return dest, n, nil
}
