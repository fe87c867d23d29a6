package shared

// Filter carries the query options list operations accept: pagination,
// ordering, free-text search, and field-specific filters.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]any
}
