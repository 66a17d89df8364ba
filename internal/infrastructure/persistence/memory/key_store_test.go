package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/internal/domain/repository"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

var created = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func record(id string) *models.KeyRecord {
	return &models.KeyRecord{
		ID:        id,
		Name:      "key " + id,
		Algorithm: constants.AlgorithmAES256GCM,
		Purpose:   constants.PurposeEncryption,
		Status:    constants.KeyStatusActive,
		CreatedAt: created,
		ExpiresAt: created.Add(30 * 24 * time.Hour),
	}
}

func TestKeyStore_PutGetList(t *testing.T) {
	ctx := context.Background()
	store := NewKeyStore()

	for _, id := range []string{"k3", "k1", "k2"} {
		require.NoError(t, store.Put(ctx, record(id)))
	}

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "key k1", got.Name)
	assert.Equal(t, created, got.UpdatedAt)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "k3", list[0].ID)
	assert.Equal(t, "k1", list[1].ID)
	assert.Equal(t, "k2", list[2].ID)

	assert.True(t, store.Exists(ctx, "k2"))
	assert.False(t, store.Exists(ctx, "k9"))
	assert.Equal(t, 3, store.Len())
}

func TestKeyStore_PutRejectsDuplicatesAndInvalid(t *testing.T) {
	ctx := context.Background()
	store := NewKeyStore()
	require.NoError(t, store.Put(ctx, record("k1")))

	err := store.Put(ctx, record("k1"))
	assert.True(t, errors.Is(err, errors.ErrKindConflict))

	bad := record("k2")
	bad.Status = constants.KeyStatusRevoked
	err = store.Put(ctx, bad)
	assert.True(t, errors.IsValidation(err))
	assert.False(t, store.Exists(ctx, "k2"))
}

func TestKeyStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewKeyStore()
	rec := record("k1")
	require.NoError(t, store.Put(ctx, rec))

	rec.Name = "mutated by caller"
	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	got.Status = constants.KeyStatusRevoked

	again, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "key k1", again.Name)
	assert.Equal(t, constants.KeyStatusActive, again.Status)
}

func TestKeyStore_Update(t *testing.T) {
	ctx := context.Background()
	updatedAt := created.Add(time.Hour)
	store := NewKeyStore(WithClock(func() time.Time { return updatedAt }))
	require.NoError(t, store.Put(ctx, record("k1")))

	t.Run("commits mutation", func(t *testing.T) {
		got, err := store.Update(ctx, "k1", func(r *models.KeyRecord) error {
			r.Description = "hsm backed"
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "hsm backed", got.Description)
		assert.Equal(t, updatedAt, got.UpdatedAt)
	})

	t.Run("mutate error discards copy", func(t *testing.T) {
		_, err := store.Update(ctx, "k1", func(r *models.KeyRecord) error {
			r.Description = "discarded"
			return fmt.Errorf("boom")
		})
		require.Error(t, err)
		got, _ := store.Get(ctx, "k1")
		assert.Equal(t, "hsm backed", got.Description)
	})

	t.Run("guard rejects illegal status", func(t *testing.T) {
		_, err := store.Update(ctx, "k1", func(r *models.KeyRecord) error {
			r.Status = constants.KeyStatusPending
			return nil
		})
		assert.True(t, errors.IsInvalidTransition(err))
		got, _ := store.Get(ctx, "k1")
		assert.Equal(t, constants.KeyStatusActive, got.Status)
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := store.Update(ctx, "nope", func(*models.KeyRecord) error { return nil })
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestKeyStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewKeyStore()
	_, err := store.List(ctx)
	assert.True(t, errors.Is(err, errors.ErrKindCancelled))
	_, err = store.Get(ctx, "k1")
	assert.True(t, errors.Is(err, errors.ErrKindCancelled))
}

func TestKeyStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := NewKeyStore()
	require.NoError(t, store.Put(ctx, record("k1")))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "k1", func(r *models.KeyRecord) error {
				r.Description += "x"
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Len(t, got.Description, workers)
}

func TestKeyStore_SkipUpdateLeavesRecord(t *testing.T) {
	ctx := context.Background()
	store := NewKeyStore(WithClock(func() time.Time { return created.Add(time.Hour) }))
	require.NoError(t, store.Put(ctx, record("k1")))

	got, err := store.Update(ctx, "k1", func(r *models.KeyRecord) error {
		r.Description = "dropped"
		return repository.ErrSkipUpdate
	})
	require.NoError(t, err)
	assert.Empty(t, got.Description)
	assert.Equal(t, created, got.UpdatedAt)
}
