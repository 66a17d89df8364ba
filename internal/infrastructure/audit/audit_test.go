package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/keyreg/internal/config"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
	regerrors "github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/logger"
)

func newSQLiteStore(t *testing.T) *GormAuditStore {
	t.Helper()
	db, err := OpenDatabase(config.AuditConfig{Store: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	store, err := NewGormAuditStore(db)
	require.NoError(t, err)
	return store
}

func TestGormAuditStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	first := models.NewAuditEvent(constants.EventTypeKeyRevoked, "alice", constants.AuditOutcomeSuccess).
		WithResource("key", "k1").
		WithIP("10.0.0.5").
		WithDetail("reason", "compromised").
		At(ts)
	second := models.NewAuditEvent(constants.EventTypeBulkConfirmed, "bob", constants.AuditOutcomePartial).At(ts.Add(time.Minute))

	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	events, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)

	got := events[0]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, constants.EventTypeKeyRevoked, got.EventType)
	assert.Equal(t, "key/k1", got.ResourceRef())
	assert.Equal(t, "10.0.0.5", got.IPAddress)
	assert.Equal(t, "compromised", got.Details["reason"])
	assert.True(t, ts.Equal(got.Timestamp))
	assert.Equal(t, second.ID, events[1].ID)
}

func TestGormAuditStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	event := models.NewAuditEvent(constants.EventTypeKeyCreated, "alice", constants.AuditOutcomeSuccess)

	require.NoError(t, store.Append(ctx, event))
	err := store.Append(ctx, event)
	assert.True(t, regerrors.Is(err, regerrors.ErrKindConflict))
}

func TestOpenDatabase_UnknownStore(t *testing.T) {
	_, err := OpenDatabase(config.AuditConfig{Store: "memory"})
	assert.Error(t, err)
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaPublisher_PublishLifecycleEvent(t *testing.T) {
	writer := new(mockWriter)
	publisher := NewKafkaPublisherWithWriter(writer, logger.NewNoopLogger())

	event := models.LifecycleEvent{
		KeyID:      "k1",
		Action:     constants.ActionRevoke,
		From:       constants.KeyStatusActive,
		To:         constants.KeyStatusRevoked,
		Actor:      "alice",
		OccurredAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	writer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || string(msgs[0].Key) != "k1" {
			return false
		}
		var decoded models.LifecycleEvent
		return json.Unmarshal(msgs[0].Value, &decoded) == nil && decoded.To == constants.KeyStatusRevoked
	})).Return(nil).Once()

	require.NoError(t, publisher.PublishLifecycleEvent(context.Background(), event))
	writer.AssertExpectations(t)
}

func TestKafkaPublisher_WriteFailure(t *testing.T) {
	writer := new(mockWriter)
	publisher := NewKafkaPublisherWithWriter(writer, logger.NewNoopLogger())
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))
	writer.On("Close").Return(nil)

	err := publisher.PublishLifecycleEvent(context.Background(), models.LifecycleEvent{KeyID: "k1"})
	assert.EqualError(t, err, "broker unavailable")
	assert.NoError(t, publisher.Close())
}
