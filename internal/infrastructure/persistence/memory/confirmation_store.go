package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/internal/domain/repository"
	"github.com/turtacn/keyreg/pkg/errors"
)

var _ repository.ConfirmationRepository = (*ConfirmationStore)(nil)

// ConfirmationStore keeps pending bulk confirmations in a go-cache instance. Entries
// vanish once their retention elapses.
type ConfirmationStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewConfirmationStore creates a store that purges stale entries every cleanup interval.
func NewConfirmationStore(cleanup time.Duration) *ConfirmationStore {
	return &ConfirmationStore{cache: cache.New(cache.NoExpiration, cleanup)}
}

// Save stores a copy of c for retention.
func (s *ConfirmationStore) Save(ctx context.Context, c *models.Confirmation, retention time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errors.ErrCancelled(err)
	}
	stored := *c
	stored.TargetIDs = append([]string(nil), c.TargetIDs...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cache.Add(c.Token, &stored, retention); err != nil {
		return errors.ErrConflict("confirmation", c.Token)
	}
	return nil
}

// Take removes and returns the confirmation.
func (s *ConfirmationStore) Take(ctx context.Context, token string) (*models.Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache.Get(token)
	if !ok {
		return nil, errors.ErrTokenNotFound(token)
	}
	s.cache.Delete(token)
	return v.(*models.Confirmation), nil
}
