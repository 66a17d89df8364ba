// Package consumers contains Kafka consumers for background ingestion tasks.
package consumers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/turtacn/keyreg/internal/config"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/internal/domain/repository"
	"github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/logger"
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AuditIngestConsumer reads audit events published by the action-performing services
// and appends them to the local audit store.
type AuditIngestConsumer struct {
	reader MessageReader
	store  repository.AuditEventRepository
	logger logger.Logger
}

// NewAuditIngestConsumer creates a consumer group reader on cfg.AuditTopic.
func NewAuditIngestConsumer(cfg config.KafkaConfig, store repository.AuditEventRepository, log logger.Logger) *AuditIngestConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.AuditTopic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})
	return NewAuditIngestConsumerWithReader(reader, store, log)
}

// NewAuditIngestConsumerWithReader wraps an existing reader.
func NewAuditIngestConsumerWithReader(r MessageReader, store repository.AuditEventRepository, log logger.Logger) *AuditIngestConsumer {
	return &AuditIngestConsumer{reader: r, store: store, logger: log.WithComponent("AuditIngestConsumer")}
}

// Run consumes until ctx is cancelled or the reader is closed. It blocks.
func (c *AuditIngestConsumer) Run(ctx context.Context) error {
	c.logger.Info(ctx, "starting audit ingest consumer")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, io.EOF) {
				c.logger.Info(ctx, "stopping audit ingest consumer")
				return nil
			}
			c.logger.Error(ctx, "failed to fetch message from kafka", err)
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			// Left uncommitted so the group redelivers it.
			c.logger.Error(ctx, "failed to store audit event", err, logger.Int64("offset", msg.Offset))
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error(ctx, "failed to commit kafka message", err, logger.Int64("offset", msg.Offset))
		}
	}
}

// Close closes the reader.
func (c *AuditIngestConsumer) Close() error {
	return c.reader.Close()
}

// handle returns an error only for failures worth retrying. Malformed and duplicate
// events are acknowledged.
func (c *AuditIngestConsumer) handle(ctx context.Context, msg kafka.Message) error {
	var event models.AuditEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn(ctx, "dropping malformed audit message", logger.Err(err), logger.Int64("offset", msg.Offset))
		return nil
	}
	if reason := invalidReason(&event); reason != "" {
		c.logger.Warn(ctx, "dropping invalid audit event", logger.String("reason", reason), logger.String("event_id", event.ID))
		return nil
	}

	err := c.store.Append(ctx, &event)
	if errors.Is(err, errors.ErrKindConflict) {
		c.logger.Debug(ctx, "audit event already stored", logger.String("event_id", event.ID))
		return nil
	}
	return err
}

func invalidReason(e *models.AuditEvent) string {
	switch {
	case e.ID == "":
		return "missing id"
	case e.EventType == "":
		return "missing event_type"
	case !e.Outcome.IsValid():
		return "unknown outcome " + string(e.Outcome)
	case e.Timestamp.IsZero():
		return "missing timestamp"
	}
	return ""
}
