// Package audit implements the audit trail stores and the lifecycle event transports.
package audit

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/turtacn/keyreg/internal/config"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/internal/domain/repository"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// auditRow is the persisted form of an audit event. Seq preserves append order.
type auditRow struct {
	Seq          uint64                 `gorm:"primaryKey;autoIncrement"`
	EventID      string                 `gorm:"uniqueIndex;size:64;not null"`
	EventType    string                 `gorm:"index;size:64;not null"`
	Actor        string                 `gorm:"index;size:128"`
	Timestamp    time.Time              `gorm:"index;not null"`
	Outcome      string                 `gorm:"size:16;not null"`
	ResourceType string                 `gorm:"size:64"`
	ResourceID   string                 `gorm:"size:128"`
	IPAddress    string                 `gorm:"size:64"`
	Details      map[string]interface{} `gorm:"serializer:json"`
}

func (auditRow) TableName() string { return "audit_events" }

// GormAuditStore provides a GORM-backed implementation of the AuditEventRepository.
// It stores audit events in a relational database.
type GormAuditStore struct {
	db *gorm.DB
}

var _ repository.AuditEventRepository = (*GormAuditStore)(nil)

// OpenDatabase opens the audit database selected by cfg.Store ("sqlite" or "postgres").
func OpenDatabase(cfg config.AuditConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Store {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported audit store %q", cfg.Store)
	}
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

// NewGormAuditStore creates the store and migrates its table.
func NewGormAuditStore(db *gorm.DB) (*GormAuditStore, error) {
	if err := db.AutoMigrate(&auditRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit_events: %w", err)
	}
	return &GormAuditStore{db: db}, nil
}

// Append saves an AuditEvent to the database.
func (s *GormAuditStore) Append(ctx context.Context, event *models.AuditEvent) error {
	if event == nil || event.ID == "" {
		return errors.ErrValidation("id", "audit event id must not be empty")
	}
	row := auditRow{
		EventID:      event.ID,
		EventType:    string(event.EventType),
		Actor:        event.Actor,
		Timestamp:    event.Timestamp.UTC(),
		Outcome:      string(event.Outcome),
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		IPAddress:    event.IPAddress,
		Details:      event.Details,
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, gorm.ErrDuplicatedKey):
		return errors.ErrConflict("audit event", event.ID)
	case ctx.Err() != nil:
		return errors.ErrCancelled(ctx.Err())
	default:
		return errors.ErrInternal("failed to append audit event", err)
	}
}

// List returns every event in append order.
func (s *GormAuditStore) List(ctx context.Context) ([]*models.AuditEvent, error) {
	var rows []auditRow
	if err := s.db.WithContext(ctx).Order("seq asc").Find(&rows).Error; err != nil {
		if ctx.Err() != nil {
			return nil, errors.ErrCancelled(ctx.Err())
		}
		return nil, errors.ErrInternal("failed to list audit events", err)
	}

	out := make([]*models.AuditEvent, len(rows))
	for i, r := range rows {
		out[i] = &models.AuditEvent{
			ID:           r.EventID,
			EventType:    constants.AuditEventType(r.EventType),
			Actor:        r.Actor,
			Timestamp:    r.Timestamp.UTC(),
			Outcome:      constants.AuditOutcome(r.Outcome),
			ResourceType: r.ResourceType,
			ResourceID:   r.ResourceID,
			IPAddress:    r.IPAddress,
			Details:      r.Details,
		}
	}
	return out, nil
}
