package service

import (
	"cmp"
	"slices"
	"time"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

// Comparator orders two records: negative when a sorts before b, zero when equal.
type Comparator[T any] func(a, b T) int

// Sorter holds the named sort keys of one entity.
type Sorter[T any] struct {
	entity string
	keys   map[string]Comparator[T]
}

// NewSorter creates an empty Sorter for entity.
func NewSorter[T any](entity string) *Sorter[T] {
	return &Sorter[T]{entity: entity, keys: make(map[string]Comparator[T])}
}

// Register adds a sort key.
func (s *Sorter[T]) Register(key string, c Comparator[T]) *Sorter[T] {
	s.keys[key] = c
	return s
}

// Validate rejects unknown keys and directions.
func (s *Sorter[T]) Validate(spec models.SortSpec) error {
	switch spec.Direction {
	case "", constants.SortAscending, constants.SortDescending:
	default:
		return errors.ErrValidation("order", "must be asc or desc")
	}
	if spec.Key == "" {
		return nil
	}
	if _, ok := s.keys[spec.Key]; !ok {
		return errors.ErrValidation("sort", "unknown sort key "+spec.Key+" for "+s.entity)
	}
	return nil
}

// Sort returns a sorted copy of records. Records that compare equal keep their input
// order in both directions. An empty key returns the records in input order.
func (s *Sorter[T]) Sort(records []T, spec models.SortSpec) ([]T, error) {
	if err := s.Validate(spec); err != nil {
		return nil, err
	}
	out := slices.Clone(records)
	if spec.Key == "" {
		return out, nil
	}

	compare := s.keys[spec.Key]
	if spec.Direction == constants.SortDescending {
		asc := compare
		compare = func(a, b T) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out, nil
}

// CompareTimes orders timestamps chronologically.
func CompareTimes(a, b time.Time) int {
	return a.Compare(b)
}

// CompareOptionalTimes orders missing timestamps before present ones.
func CompareOptionalTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

// CompareOrdinal orders enum values by their declaration index in decl. Unknown values
// sort after known ones.
func CompareOrdinal[E comparable](decl []E, a, b E) int {
	return cmp.Compare(ordinal(decl, a), ordinal(decl, b))
}

func ordinal[E comparable](decl []E, v E) int {
	if i := slices.Index(decl, v); i >= 0 {
		return i
	}
	return len(decl)
}
