package repository

import (
	"context"
	"errors"

	"github.com/turtacn/keyreg/internal/domain/models"
)

// MutateFunc edits a private copy of a record. Returning an error discards the copy.
type MutateFunc func(rec *models.KeyRecord) error

// ErrSkipUpdate is returned by a MutateFunc to leave the record untouched. Update then
// returns the current record and a nil error.
var ErrSkipUpdate = errors.New("skip update")

// KeyRecordRepository defines the interface for key record persistence.
// Implementations return copies; callers never share memory with the store.
type KeyRecordRepository interface {
	// Put stores a new record. Duplicate ids fail with a Conflict error.
	Put(ctx context.Context, rec *models.KeyRecord) error
	// Get returns the record or a NotFound error.
	Get(ctx context.Context, id string) (*models.KeyRecord, error)
	// List returns every record in store iteration order.
	List(ctx context.Context) ([]*models.KeyRecord, error)
	// Update applies fn to the record as a single logical operation.
	Update(ctx context.Context, id string, fn MutateFunc) (*models.KeyRecord, error)
	// Exists reports whether id is present.
	Exists(ctx context.Context, id string) bool
}
