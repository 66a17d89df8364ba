package service

import (
	"maps"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

// Filter field names shared by every schema.
const (
	FieldSearch   = "search"
	FieldDateFrom = "dateFrom"
	FieldDateTo   = "dateTo"
	FieldIP       = "ipAddress"
)

// fieldAliases maps accepted alternative names onto their canonical field.
var fieldAliases = map[string]string{
	"startDate": FieldDateFrom,
	"endDate":   FieldDateTo,
	"ip":        FieldIP,
}

// Predicate reports whether a record satisfies a compiled filter.
type Predicate[T any] func(T) bool

// CategoricalField reads an exact-match field. ok is false when the record has no value.
type CategoricalField[T any] struct {
	Value   func(T) (value string, ok bool)
	Allowed []string
}

// Schema describes which filterable fields an entity exposes.
type Schema[T any] struct {
	Entity       string
	SearchFields []func(T) string
	Categorical  map[string]CategoricalField[T]
	// Date reads the timestamp that dateFrom/dateTo constrain.
	Date func(T) (time.Time, bool)
	// IP reads the address matched by ipAddress.
	IP func(T) (string, bool)
}

// Compile validates spec and turns it into a predicate that ANDs every constrained
// field. Malformed specs fail before any record is examined.
func (s *Schema[T]) Compile(spec models.FilterSpec) (Predicate[T], error) {
	normalized, err := s.normalize(spec)
	if err != nil {
		return nil, err
	}

	var preds []Predicate[T]

	if q, ok := normalized[FieldSearch]; ok {
		preds = append(preds, s.searchPredicate(q))
	}

	for _, name := range slices.Sorted(maps.Keys(s.Categorical)) {
		want, ok := normalized[name]
		if !ok {
			continue
		}
		field := s.Categorical[name]
		if len(field.Allowed) > 0 && !slices.Contains(field.Allowed, want) {
			return nil, errors.ErrValidation(name, "unknown value "+want)
		}
		preds = append(preds, func(rec T) bool {
			got, present := field.Value(rec)
			return present && got == want
		})
	}

	datePred, err := s.datePredicate(normalized)
	if err != nil {
		return nil, err
	}
	if datePred != nil {
		preds = append(preds, datePred)
	}

	if pattern, ok := normalized[FieldIP]; ok {
		ipPred, err := s.ipPredicate(pattern)
		if err != nil {
			return nil, err
		}
		preds = append(preds, ipPred)
	}

	return func(rec T) bool {
		for _, p := range preds {
			if !p(rec) {
				return false
			}
		}
		return true
	}, nil
}

// normalize resolves aliases, drops unconstrained fields and rejects unknown ones.
func (s *Schema[T]) normalize(spec models.FilterSpec) (map[string]string, error) {
	out := make(map[string]string, len(spec))
	names := make([]string, 0, len(spec))
	for name := range spec {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		canonical := name
		if alias, ok := fieldAliases[name]; ok {
			canonical = alias
		}
		if !s.knows(canonical) {
			return nil, errors.ErrValidation(name, "unknown filter field for "+s.Entity)
		}
		if spec.IsUnconstrained(name) {
			continue
		}
		value := strings.TrimSpace(spec[name])
		if prev, dup := out[canonical]; dup && prev != value {
			return nil, errors.ErrValidation(name, "conflicts with "+canonical)
		}
		out[canonical] = value
	}
	return out, nil
}

func (s *Schema[T]) knows(field string) bool {
	switch field {
	case FieldSearch:
		return len(s.SearchFields) > 0
	case FieldDateFrom, FieldDateTo:
		return s.Date != nil
	case FieldIP:
		return s.IP != nil
	}
	_, ok := s.Categorical[field]
	return ok
}

func (s *Schema[T]) searchPredicate(q string) Predicate[T] {
	needle := strings.ToLower(q)
	return func(rec T) bool {
		for _, field := range s.SearchFields {
			if strings.Contains(strings.ToLower(field(rec)), needle) {
				return true
			}
		}
		return false
	}
}

func (s *Schema[T]) datePredicate(f map[string]string) (Predicate[T], error) {
	fromRaw, hasFrom := f[FieldDateFrom]
	toRaw, hasTo := f[FieldDateTo]
	if !hasFrom && !hasTo {
		return nil, nil
	}

	var from, to time.Time
	var err error
	if hasFrom {
		if from, err = ParseDateBound(fromRaw, false); err != nil {
			return nil, errors.ErrValidation(FieldDateFrom, err.Error())
		}
	}
	if hasTo {
		if to, err = ParseDateBound(toRaw, true); err != nil {
			return nil, errors.ErrValidation(FieldDateTo, err.Error())
		}
	}

	if hasFrom && hasTo && from.After(to) {
		return func(T) bool { return false }, nil
	}

	return func(rec T) bool {
		ts, ok := s.Date(rec)
		if !ok {
			return false
		}
		if hasFrom && ts.Before(from) {
			return false
		}
		if hasTo && ts.After(to) {
			return false
		}
		return true
	}, nil
}

func (s *Schema[T]) ipPredicate(pattern string) (Predicate[T], error) {
	if prefix, wildcard := strings.CutSuffix(pattern, constants.WildcardSuffix); wildcard {
		if !isAddressPrefix(prefix) {
			return nil, errors.ErrValidation(FieldIP, "malformed address prefix "+pattern)
		}
		return func(rec T) bool {
			ip, ok := s.IP(rec)
			return ok && ip != "" && strings.HasPrefix(ip, prefix)
		}, nil
	}

	want, err := netip.ParseAddr(pattern)
	if err != nil {
		return nil, errors.ErrValidation(FieldIP, "malformed address "+pattern)
	}
	return func(rec T) bool {
		ip, ok := s.IP(rec)
		if !ok {
			return false
		}
		got, err := netip.ParseAddr(ip)
		return err == nil && got == want
	}, nil
}

// ParseDateBound accepts RFC 3339 timestamps or YYYY-MM-DD dates. A date-only upper
// bound covers the whole day.
func ParseDateBound(raw string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// Filter returns the subsequence of records satisfying pred, preserving order.
func Filter[T any](records []T, pred Predicate[T]) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func isAddressPrefix(p string) bool {
	for _, r := range p {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}
