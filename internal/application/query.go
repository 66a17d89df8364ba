package application

import (
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/internal/domain/service"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

// compiledQuery is a validated filter, sort and page ready to run against a snapshot.
type compiledQuery[T any] struct {
	pred   service.Predicate[T]
	sorter *service.Sorter[T]
	query  models.Query
}

// compileQuery validates every part of q before any record is read.
func compileQuery[T any](schema *service.Schema[T], sorter *service.Sorter[T], q models.Query) (*compiledQuery[T], error) {
	pred, err := schema.Compile(q.Filter)
	if err != nil {
		return nil, err
	}
	if err := sorter.Validate(q.Sort); err != nil {
		return nil, err
	}
	if err := validatePage(q.Page); err != nil {
		return nil, err
	}
	return &compiledQuery[T]{pred: pred, sorter: sorter, query: q}, nil
}

// run filters, sorts and paginates records.
func (c *compiledQuery[T]) run(records []T) (models.View[T], error) {
	matched := service.Filter(records, c.pred)
	sorted, err := c.sorter.Sort(matched, c.query.Sort)
	if err != nil {
		return models.View[T]{}, err
	}
	return models.Paginate(sorted, c.query.Page), nil
}

func validatePage(p models.Page) error {
	switch {
	case p.Limit < 0:
		return errors.ErrValidation("limit", "must not be negative")
	case p.Limit > constants.MaxPageSize:
		return errors.ErrValidation("limit", "exceeds the maximum page size")
	case p.Offset < 0:
		return errors.ErrValidation("offset", "must not be negative")
	}
	return nil
}
