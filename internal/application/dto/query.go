// Package dto holds the request and response shapes of the HTTP API and their
// conversion to domain models.
package dto

import (
	"net/url"
	"strconv"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

// Reserved query parameters; every other parameter is a filter field.
const (
	ParamSort   = "sort"
	ParamOrder  = "order"
	ParamLimit  = "limit"
	ParamOffset = "offset"
)

// ParseQuery builds a query from URL parameters. A missing limit becomes defaultLimit;
// pass zero for an unbounded listing. Unknown filter fields are left for the filter
// engine to reject.
func ParseQuery(values url.Values, defaultLimit int) (models.Query, error) {
	q := models.Query{
		Filter: make(models.FilterSpec),
		Sort: models.SortSpec{
			Key:       values.Get(ParamSort),
			Direction: constants.SortDirection(values.Get(ParamOrder)),
		},
		Page: models.Page{Limit: defaultLimit},
	}

	for name, vals := range values {
		switch name {
		case ParamSort, ParamOrder, ParamLimit, ParamOffset:
			continue
		}
		if len(vals) > 1 {
			return models.Query{}, errors.ErrValidation(name, "must be given once")
		}
		q.Filter[name] = vals[0]
	}

	if raw := values.Get(ParamLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return models.Query{}, errors.ErrValidation(ParamLimit, "must be an integer")
		}
		q.Page.Limit = n
	}
	if raw := values.Get(ParamOffset); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return models.Query{}, errors.ErrValidation(ParamOffset, "must be an integer")
		}
		q.Page.Offset = n
	}
	return q, nil
}
