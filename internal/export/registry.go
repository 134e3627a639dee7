// Package export implements the file formats catalog rows can be downloaded in.
package export

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/simp-lee/catalog/internal/domain"
)

// Registry resolves exporters by their "exporter.<format>" key.
type Registry struct {
	mu        sync.RWMutex
	exporters map[string]domain.Exporter
}

// NewRegistry creates a Registry holding exporters.
func NewRegistry(exporters ...domain.Exporter) *Registry {
	r := &Registry{exporters: make(map[string]domain.Exporter, len(exporters))}
	for _, e := range exporters {
		r.Register(e)
	}
	return r
}

// Builtin returns every exporter shipped with the package.
func Builtin() []domain.Exporter {
	return []domain.Exporter{CSV{}, JSON{}, XLSX{}, PDF{}}
}

// NewRegistryFor creates a Registry holding the built-in exporters for formats.
// An empty list enables all of them.
func NewRegistryFor(formats []string) (*Registry, error) {
	builtin := Builtin()
	if len(formats) == 0 {
		return NewRegistry(builtin...), nil
	}

	r := NewRegistry()
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		i := slices.IndexFunc(builtin, func(e domain.Exporter) bool { return e.Format() == format })
		if i < 0 {
			return nil, fmt.Errorf("unknown export format %q", format)
		}
		r.Register(builtin[i])
	}
	return r, nil
}

// Register adds e under the key of its format, replacing any previous one.
func (r *Registry) Register(e domain.Exporter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exporters[domain.ExporterKey(e.Format())] = e
}

// Resolve returns the exporter registered under key.
func (r *Registry) Resolve(key string) (domain.Exporter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.exporters[key]
	return e, ok
}

// Formats returns the registered formats in alphabetical order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]string, 0, len(r.exporters))
	for _, e := range r.exporters {
		formats = append(formats, e.Format())
	}
	slices.Sort(formats)
	return formats
}
