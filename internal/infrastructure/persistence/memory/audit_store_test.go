package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

func TestAuditStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	store := NewAuditStore()

	first := models.NewAuditEvent(constants.EventTypeKeyRevoked, "alice", constants.AuditOutcomeSuccess).
		WithResource("key", "k1").
		WithDetail("reason", "compromised")
	second := models.NewAuditEvent(constants.EventTypeKeyExpired, constants.SystemActor, constants.AuditOutcomeSuccess)

	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	first.Details["reason"] = "edited after append"

	events, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, "compromised", events[0].Details["reason"])
	assert.Equal(t, second.ID, events[1].ID)

	err = store.Append(ctx, first)
	assert.True(t, errors.Is(err, errors.ErrKindConflict))
}

func TestAuditStore_RejectsMissingID(t *testing.T) {
	err := NewAuditStore().Append(context.Background(), &models.AuditEvent{})
	assert.True(t, errors.IsValidation(err))
}
