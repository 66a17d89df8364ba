package repository

import (
	"context"
	"time"

	"github.com/turtacn/keyreg/internal/domain/models"
)

// ConfirmationRepository holds pending bulk confirmations.
type ConfirmationRepository interface {
	// Save stores c and keeps it retrievable for at least retention.
	Save(ctx context.Context, c *models.Confirmation, retention time.Duration) error
	// Take atomically returns and removes the confirmation. A second Take of the same
	// token fails with TokenNotFound.
	Take(ctx context.Context, token string) (*models.Confirmation, error)
}
