package memory

import (
	"context"
	"sync"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/internal/domain/repository"
	"github.com/turtacn/keyreg/pkg/errors"
)

var _ repository.AuditEventRepository = (*AuditStore)(nil)

// AuditStore is an append-only, in-memory audit trail.
type AuditStore struct {
	mu     sync.RWMutex
	events []*models.AuditEvent
	ids    map[string]struct{}
}

// NewAuditStore creates an empty AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{ids: make(map[string]struct{})}
}

// Append stores a copy of event.
func (s *AuditStore) Append(ctx context.Context, event *models.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return errors.ErrCancelled(err)
	}
	if event == nil || event.ID == "" {
		return errors.ErrValidation("id", "audit event id must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[event.ID]; dup {
		return errors.ErrConflict("audit event", event.ID)
	}
	s.ids[event.ID] = struct{}{}
	s.events = append(s.events, event.Clone())
	return nil
}

// List returns copies of every event in append order.
func (s *AuditStore) List(ctx context.Context) ([]*models.AuditEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AuditEvent, len(s.events))
	for i, e := range s.events {
		out[i] = e.Clone()
	}
	return out, nil
}
