package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/internal/domain/repository"
	"github.com/turtacn/keyreg/pkg/errors"
)

var _ repository.ConfirmationRepository = (*ConfirmationStore)(nil)

// ConfirmationStore keeps pending bulk confirmations in Redis so that any replica can
// confirm a token issued by another one.
type ConfirmationStore struct {
	client redis.UniversalClient
	prefix string
}

// NewConfirmationStore creates a store whose keys start with prefix.
func NewConfirmationStore(client redis.UniversalClient, prefix string) *ConfirmationStore {
	return &ConfirmationStore{client: client, prefix: prefix}
}

func (s *ConfirmationStore) key(token string) string {
	return s.prefix + token
}

// Save writes c with an expiry of retention. An existing token is never overwritten.
func (s *ConfirmationStore) Save(ctx context.Context, c *models.Confirmation, retention time.Duration) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return errors.ErrInternal("failed to encode confirmation", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(c.Token), payload, retention).Result()
	if err != nil {
		return wrapRedisError(ctx, "failed to save confirmation", err)
	}
	if !ok {
		return errors.ErrConflict("confirmation", c.Token)
	}
	return nil
}

// Take reads and deletes the confirmation in one GETDEL round trip.
func (s *ConfirmationStore) Take(ctx context.Context, token string) (*models.Confirmation, error) {
	payload, err := s.client.GetDel(ctx, s.key(token)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.ErrTokenNotFound(token)
	}
	if err != nil {
		return nil, wrapRedisError(ctx, "failed to take confirmation", err)
	}

	var c models.Confirmation
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, errors.ErrInternal("failed to decode confirmation", err)
	}
	return &c, nil
}

func wrapRedisError(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return errors.ErrCancelled(ctx.Err())
	}
	return errors.ErrInternal(msg, err)
}
