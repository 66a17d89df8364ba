package repository

import (
	"context"

	"github.com/turtacn/keyreg/internal/domain/models"
)

// AuditEventRepository defines the interface for the append-only audit trail.
type AuditEventRepository interface {
	// Append writes a new event. Events are never modified afterwards.
	Append(ctx context.Context, event *models.AuditEvent) error
	// List returns every event in append order.
	List(ctx context.Context) ([]*models.AuditEvent, error)
}
