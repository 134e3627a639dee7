package catalog

// Input is a create request body for a resource of type T.
type Input[T any] interface {
	Entity() *T
}

// Patch is an update request body. Attributes returns only the fields the
// client sent, keyed by column name.
type Patch interface {
	Attributes() map[string]any
}

// BatchRequest creates several entities at once.
type BatchRequest[C any] struct {
	Items []C `json:"items" binding:"required,min=1,dive"`
}

// UpsertRequest inserts rows, updating Update columns of rows that clash on UniqueBy.
type UpsertRequest[C any] struct {
	Rows     []C      `json:"rows" binding:"required,min=1,dive"`
	UniqueBy []string `json:"unique_by" binding:"required,min=1"`
	Update   []string `json:"update"`
}

// ActiveRequest toggles the active flag of one entity.
type ActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// BulkRequest addresses entities by primary key, by uuid, or both.
type BulkRequest struct {
	IDs   []uint   `json:"ids"`
	UUIDs []string `json:"uuids"`
}

// BulkActiveRequest toggles the active flag of several entities.
type BulkActiveRequest struct {
	IDs    []uint   `json:"ids"`
	UUIDs  []string `json:"uuids"`
	Active *bool    `json:"active" binding:"required"`
}

// BulkResult reports how many rows a bulk operation affected.
type BulkResult struct {
	Affected int64 `json:"affected"`
}
