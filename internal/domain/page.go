package domain

// Row is the flat, exporter-friendly shape of one entity.
type Row = map[string]any

// Page is one page of entities together with its pagination metadata.
type Page[T any] struct {
	Items       []T
	Total       int64
	PerPage     int
	CurrentPage int
	LastPage    int
	// Counts[i] holds the "<relation>_count" values of Items[i] when relation
	// counts were requested; nil otherwise.
	Counts []map[string]int64
}

// Empty reports whether the page carries no items.
func (p *Page[T]) Empty() bool {
	return len(p.Items) == 0
}

// Meta returns the page's metadata without the items.
func (p *Page[T]) Meta() PageMeta {
	return PageMeta{
		CurrentPage: p.CurrentPage,
		PerPage:     p.PerPage,
		Total:       p.Total,
		LastPage:    p.LastPage,
	}
}

// PageMeta is the pagination metadata of a listing.
type PageMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

// ListResult is the service-level result of a listing: mapped rows plus metadata.
type ListResult struct {
	Rows []Row    `json:"rows"`
	Meta PageMeta `json:"meta"`
}
