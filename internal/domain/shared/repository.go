package shared

// Filter represents query filter options
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}

// MaxPageSize caps page sizes requested by clients
const MaxPageSize = 1000

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
}

// Normalize clamps paging values into their valid ranges
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if f.OrderDir != "asc" {
		f.OrderDir = "desc"
	}
	if f.Filters == nil {
		f.Filters = make(map[string]interface{})
	}
	return f
}

// Offset returns the row offset for the current page
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// With returns a copy of the filter with an additional key/value filter
func (f Filter) With(key string, value interface{}) Filter {
	filters := make(map[string]interface{}, len(f.Filters)+1)
	for k, v := range f.Filters {
		filters[k] = v
	}
	filters[key] = value
	f.Filters = filters
	return f
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// MapPaginated converts the items of a page while keeping its metadata
func MapPaginated[T, R any](p Paginated[T], fn func(T) R) Paginated[R] {
	out := make([]R, 0, len(p.Items))
	for _, item := range p.Items {
		out = append(out, fn(item))
	}
	return Paginated[R]{
		Items:      out,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}
