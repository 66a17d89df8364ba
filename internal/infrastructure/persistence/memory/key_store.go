// Package memory provides in-process implementations of the registry repositories.
// They are the default backing stores of the server and the fixture-driven admin CLI.
package memory

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/internal/domain/repository"
	"github.com/turtacn/keyreg/internal/domain/service"
	"github.com/turtacn/keyreg/pkg/errors"
)

var _ repository.KeyRecordRepository = (*KeyStore)(nil)

// ChangeGuard vets a committed update. prev is the stored record and next the edited copy.
type ChangeGuard func(prev, next *models.KeyRecord) error

type keyEntry struct {
	mu  sync.RWMutex
	rec *models.KeyRecord
}

// KeyStore keeps key records in memory. Each record has its own lock so that updates
// to different records never wait on each other; list order is insertion order.
type KeyStore struct {
	mu      sync.RWMutex
	entries map[string]*keyEntry
	order   []string
	guard   ChangeGuard
	now     func() time.Time
}

// KeyStoreOption configures a KeyStore.
type KeyStoreOption func(*KeyStore)

// WithChangeGuard replaces the default update guard.
func WithChangeGuard(g ChangeGuard) KeyStoreOption {
	return func(s *KeyStore) { s.guard = g }
}

// WithClock sets the time source used for UpdatedAt.
func WithClock(now func() time.Time) KeyStoreOption {
	return func(s *KeyStore) { s.now = now }
}

// NewKeyStore creates an empty KeyStore guarded by service.ValidateRecordChange.
func NewKeyStore(opts ...KeyStoreOption) *KeyStore {
	s := &KeyStore{
		entries: make(map[string]*keyEntry),
		guard:   service.ValidateRecordChange,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a validated copy of rec.
func (s *KeyStore) Put(ctx context.Context, rec *models.KeyRecord) error {
	if err := ctx.Err(); err != nil {
		return errors.ErrCancelled(err)
	}
	if rec == nil {
		return errors.ErrValidation("record", "must not be nil")
	}
	if err := rec.ValidateNew(); err != nil {
		return err
	}

	stored := rec.Clone()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[stored.ID]; exists {
		return errors.ErrConflict("key", stored.ID)
	}
	s.entries[stored.ID] = &keyEntry{rec: stored}
	s.order = append(s.order, stored.ID)
	return nil
}

// Get returns a copy of the record.
func (s *KeyStore) Get(ctx context.Context, id string) (*models.KeyRecord, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rec.Clone(), nil
}

// List returns copies of every record in insertion order.
func (s *KeyStore) List(ctx context.Context) ([]*models.KeyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled(err)
	}

	s.mu.RLock()
	entries := make([]*keyEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.entries[id])
	}
	s.mu.RUnlock()

	out := make([]*models.KeyRecord, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		out = append(out, e.rec.Clone())
		e.mu.RUnlock()
	}
	return out, nil
}

// Update runs fn on a private copy while holding the record lock, vets the result with
// the change guard and commits it. Concurrent updates of one record are serialized and
// each observes the previous commit.
func (s *KeyStore) Update(ctx context.Context, id string, fn repository.MutateFunc) (*models.KeyRecord, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.rec.Clone()
	if err := fn(next); err != nil {
		if stderrors.Is(err, repository.ErrSkipUpdate) {
			return e.rec.Clone(), nil
		}
		return nil, err
	}
	if err := s.guard(e.rec, next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	e.rec = next
	return next.Clone(), nil
}

// Exists reports whether id is stored.
func (s *KeyStore) Exists(_ context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

// Len returns the number of stored records.
func (s *KeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *KeyStore) entry(ctx context.Context, id string) (*keyEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled(err)
	}
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrNotFound("key", id)
	}
	return e, nil
}
