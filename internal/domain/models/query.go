package models

import "github.com/turtacn/keyreg/pkg/constants"

// FilterSpec maps a filter field name to its match value. An absent field, an empty
// value, or constants.FilterAll means the field is unconstrained.
type FilterSpec map[string]string

// IsUnconstrained reports whether the value for field places no constraint.
func (f FilterSpec) IsUnconstrained(field string) bool {
	v, ok := f[field]
	return !ok || v == "" || v == constants.FilterAll
}

// SortSpec selects the sort key and direction of a view. An empty key keeps store order.
type SortSpec struct {
	Key       string                  `json:"key,omitempty"`
	Direction constants.SortDirection `json:"direction,omitempty"`
}

// Page bounds a listing. A zero limit means every record after offset.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Query bundles the inputs of a filtered, sorted, paginated view.
type Query struct {
	Filter FilterSpec `json:"filter,omitempty"`
	Sort   SortSpec   `json:"sort,omitempty"`
	Page   Page       `json:"page,omitempty"`
}

// View is an ordered page of records plus the number of records that matched.
type View[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Paginate cuts records down to page p.
func Paginate[T any](records []T, p Page) View[T] {
	total := len(records)
	start := p.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if p.Limit > 0 && start+p.Limit < total {
		end = start + p.Limit
	}
	items := make([]T, end-start)
	copy(items, records[start:end])
	return View[T]{Items: items, Total: total, Limit: p.Limit, Offset: start}
}
