package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/keyreg/internal/config"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/logger"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), config.RedisConfig{Addresses: []string{mr.Addr()}}, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newConfirmation(token string) *models.Confirmation {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return &models.Confirmation{
		Token:       token,
		Action:      constants.ActionRotate,
		TargetIDs:   []string{"k1", "k2", "k3"},
		Count:       3,
		RequestedBy: "alice",
		CreatedAt:   now,
		ExpiresAt:   now.Add(5 * time.Minute),
	}
}

func TestConfirmationStore_SaveTake(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	store := NewConfirmationStore(client, "keyreg:confirm:")

	want := newConfirmation("tok-1")
	require.NoError(t, store.Save(ctx, want, 30*time.Minute))
	assert.True(t, mr.Exists("keyreg:confirm:tok-1"))
	assert.Equal(t, 30*time.Minute, mr.TTL("keyreg:confirm:tok-1"))

	got, err := store.Take(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, want.TargetIDs, got.TargetIDs)
	assert.Equal(t, want.Action, got.Action)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
	assert.False(t, mr.Exists("keyreg:confirm:tok-1"))

	_, err = store.Take(ctx, "tok-1")
	assert.True(t, errors.Is(err, errors.ErrKindTokenNotFound))
}

func TestConfirmationStore_RetentionElapsed(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	store := NewConfirmationStore(client, "c:")

	require.NoError(t, store.Save(ctx, newConfirmation("tok-2"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Take(ctx, "tok-2")
	assert.True(t, errors.Is(err, errors.ErrKindTokenNotFound))
}

func TestConfirmationStore_DuplicateToken(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	store := NewConfirmationStore(client, "c:")

	require.NoError(t, store.Save(ctx, newConfirmation("tok-3"), time.Minute))
	err := store.Save(ctx, newConfirmation("tok-3"), time.Minute)
	assert.True(t, errors.Is(err, errors.ErrKindConflict))
}

func TestNewClient_Unreachable(t *testing.T) {
	_, err := NewClient(context.Background(), config.RedisConfig{Addresses: []string{"127.0.0.1:1"}}, logger.NewNoopLogger())
	assert.Error(t, err)
}
