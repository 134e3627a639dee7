package catalog

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/simp-lee/catalog/internal/domain"
	"github.com/simp-lee/catalog/internal/metrics"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportStream is a prepared export. Nothing is written until Write is called.
type ExportStream struct {
	Filename    string
	ContentType string
	Format      string
	Columns     []string

	resource string
	exporter domain.Exporter
	rows     iter.Seq2[domain.Row, error]
	logger   *slog.Logger
}

// Headers returns the HTTP headers announcing the download.
func (e *ExportStream) Headers() map[string]string {
	return map[string]string{
		"Content-Type":        e.ContentType,
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", e.Filename),
	}
}

// Write streams every row to w and returns the number of rows written.
func (e *ExportStream) Write(w io.Writer) (int, error) {
	n, err := e.exporter.Export(w, e.rows, e.Columns)
	metrics.RecordExport(e.resource, e.Format, n, err)
	if err != nil {
		e.logger.Error("export failed", "format", e.Format, "rows", n, "error", err)
		return n, err
	}
	e.logger.Info("export finished", "format", e.Format, "filename", e.Filename, "rows", n)
	return n, nil
}

// Export prepares a download of every row matching q (its page and page size
// are ignored). An unknown format or a failure to read the first page is
// returned before anything is written. The rows are fetched lazily in pages
// of ExportChunkSize, so at most one page of entities is held at a time.
func (s *Service[T]) Export(ctx context.Context, q domain.ListQuery, format string, columns []string, filename string) (*ExportStream, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if s.opts.Exporters == nil {
		return nil, domain.Invalid("unsupported export format %q", format)
	}
	exporter, ok := s.opts.Exporters.Resolve(domain.ExporterKey(format))
	if !ok {
		return nil, domain.Invalid("unsupported export format %q", format)
	}

	if len(columns) == 0 {
		columns = slices.Clone(s.opts.DefaultColumns)
	}

	first, err := s.repo.Paginate(ctx, q.AtPage(1, s.opts.ExportChunkSize), nil, nil)
	if err != nil {
		return nil, err
	}

	return &ExportStream{
		Filename:    s.exportFilename(filename, exporter.Extension()),
		ContentType: exporter.ContentType(),
		Format:      exporter.Format(),
		Columns:     columns,
		resource:    s.opts.Resource,
		exporter:    exporter,
		rows:        s.pages(ctx, q, first),
		logger:      s.logger,
	}, nil
}

// Rows returns a lazy sequence of every mapped row matching q, read in pages
// of ExportChunkSize. Iteration stops at the first storage error, which is
// yielded.
func (s *Service[T]) Rows(ctx context.Context, q domain.ListQuery) iter.Seq2[domain.Row, error] {
	return s.pages(ctx, q, nil)
}

// pages walks q page by page. A non-nil first page is used for the first
// iteration instead of fetching it again.
func (s *Service[T]) pages(ctx context.Context, q domain.ListQuery, first *domain.Page[T]) iter.Seq2[domain.Row, error] {
	chunk := s.opts.ExportChunkSize
	pending := first

	return func(yield func(domain.Row, error) bool) {
		next := 1
		for {
			var page *domain.Page[T]
			if pending != nil && next == 1 {
				page, pending = pending, nil
			} else {
				p, err := s.repo.Paginate(ctx, q.AtPage(next, chunk), nil, nil)
				if err != nil {
					yield(nil, err)
					return
				}
				page = p
			}

			for i := range page.Items {
				if !yield(s.ToRow(&page.Items[i]), nil) {
					return
				}
			}

			if len(page.Items) < chunk || page.CurrentPage >= page.LastPage {
				return
			}
			next = page.CurrentPage + 1
		}
	}
}

func (s *Service[T]) exportFilename(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("%s_%s", s.opts.Resource, s.opts.Now().UTC().Format("20060102_150405"))
	}
	name = strings.Trim(unsafeFilenameChars.ReplaceAllString(name, "_"), "._")
	if name == "" {
		name = "export"
	}
	if ext != "" && !strings.HasSuffix(strings.ToLower(name), "."+ext) {
		name += "." + ext
	}
	return name
}
