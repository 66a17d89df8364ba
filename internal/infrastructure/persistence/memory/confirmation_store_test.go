package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

func confirmation(token string) *models.Confirmation {
	return &models.Confirmation{
		Token:     token,
		Action:    constants.ActionRevoke,
		TargetIDs: []string{"k1", "k2"},
		Count:     2,
		CreatedAt: created,
		ExpiresAt: created.Add(5 * time.Minute),
	}
}

func TestConfirmationStore_TakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewConfirmationStore(time.Minute)
	c := confirmation("tok-1")
	require.NoError(t, store.Save(ctx, c, time.Hour))

	c.TargetIDs[0] = "mutated"

	got, err := store.Take(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, got.TargetIDs)

	_, err = store.Take(ctx, "tok-1")
	assert.True(t, errors.Is(err, errors.ErrKindTokenNotFound))
}

func TestConfirmationStore_RetentionElapsed(t *testing.T) {
	ctx := context.Background()
	store := NewConfirmationStore(time.Minute)
	require.NoError(t, store.Save(ctx, confirmation("tok-2"), 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	_, err := store.Take(ctx, "tok-2")
	assert.True(t, errors.Is(err, errors.ErrKindTokenNotFound))
}

func TestConfirmationStore_ConcurrentTakeHasOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewConfirmationStore(time.Minute)
	require.NoError(t, store.Save(ctx, confirmation("tok-3"), time.Hour))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Take(ctx, "tok-3"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
