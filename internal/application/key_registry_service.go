// Package application provides the application layer services.
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/internal/domain/repository"
	"github.com/turtacn/keyreg/internal/domain/service"
	"github.com/turtacn/keyreg/internal/infrastructure/monitoring"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/logger"
)

const resourceTypeKey = "key"

// KeyRegistry is the application-facing API of the key record lifecycle.
// KeyRegistry 是密钥记录生命周期面向应用的接口。
type KeyRegistry interface {
	// Register stores a fully formed initial record supplied by the generation service.
	// Register 存储由生成服务提供的完整初始记录。
	Register(ctx context.Context, rec *models.KeyRecord) (*models.KeyRecord, error)

	// Get returns a record by id.
	// Get 按 ID 返回记录。
	Get(ctx context.Context, id string) (*models.KeyRecord, error)

	// UpdateMetadata edits name and description. It never touches status.
	// UpdateMetadata 修改名称和描述，从不修改状态。
	UpdateMetadata(ctx context.Context, id string, patch models.KeyMetadataPatch) (*models.KeyRecord, error)

	// Transition applies a single lifecycle action.
	// Transition 应用单个生命周期操作。
	Transition(ctx context.Context, id string, req models.TransitionRequest) (*models.KeyRecord, error)

	// Query returns the filtered, sorted and paginated view of the store.
	// Query 返回存储的过滤、排序和分页视图。
	Query(ctx context.Context, q models.Query) (models.View[*models.KeyRecord], error)

	// Summary counts records per status, algorithm and purpose.
	// Summary 按状态、算法和用途统计记录数量。
	Summary(ctx context.Context) (models.KeySummary, error)

	// TickExpirations expires every due pending or active record and returns their ids.
	// TickExpirations 使所有到期的 pending 或 active 记录过期，并返回其 ID。
	TickExpirations(ctx context.Context) ([]string, error)
}

// TransitionResult describes an applied lifecycle action.
type TransitionResult struct {
	Record *models.KeyRecord
	From   constants.KeyStatus
	// Changed is false for an idempotent expire of an expired record.
	Changed bool
}

// KeyRegistryService orchestrates the record store, the lifecycle machine, the audit
// trail and lifecycle event publication.
// KeyRegistryService 协调记录存储、生命周期状态机、审计记录和生命周期事件发布。
type KeyRegistryService struct {
	keys      repository.KeyRecordRepository
	audit     repository.AuditEventRepository
	publisher service.EventPublisher
	machine   *service.LifecycleMachine
	schema    *service.Schema[*models.KeyRecord]
	sorter    *service.Sorter[*models.KeyRecord]
	clock     service.Clock
	metrics   service.Metrics
	tracer    trace.Tracer
	logger    logger.Logger
	perf      *logger.PerformanceLogger
}

var _ KeyRegistry = (*KeyRegistryService)(nil)

// Option customizes the application services.
type Option func(*options)

type options struct {
	clock  service.Clock
	tracer trace.Tracer
}

// WithClock overrides the wall clock.
func WithClock(c service.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTracer sets the tracer used for spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func buildOptions(opts []Option) options {
	o := options{clock: service.SystemClock{}, tracer: otel.Tracer(constants.ServiceName)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewKeyRegistryService creates a new KeyRegistryService.
// A nil publisher or metrics falls back to a no-op implementation.
func NewKeyRegistryService(
	keys repository.KeyRecordRepository,
	audit repository.AuditEventRepository,
	publisher service.EventPublisher,
	metrics service.Metrics,
	log logger.Logger,
	opts ...Option,
) *KeyRegistryService {
	o := buildOptions(opts)
	if publisher == nil {
		publisher = service.NoopPublisher{}
	}
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &KeyRegistryService{
		keys:      keys,
		audit:     audit,
		publisher: publisher,
		machine:   service.NewLifecycleMachine(),
		schema:    service.KeySchema(),
		sorter:    service.KeySorter(),
		clock:     o.clock,
		metrics:   metrics,
		tracer:    o.tracer,
		logger:    log.WithComponent("KeyRegistryService"),
		perf:      logger.NewPerformanceLogger(log),
	}
}

// Register stores rec and records a key.created audit event.
func (s *KeyRegistryService) Register(ctx context.Context, rec *models.KeyRecord) (*models.KeyRecord, error) {
	if rec == nil {
		return nil, errors.ErrValidation("record", "must not be nil")
	}
	if err := s.keys.Put(ctx, rec); err != nil {
		return nil, err
	}

	actor, ip := ActorFromContext(ctx)
	s.appendAudit(ctx, models.NewAuditEvent(constants.EventTypeKeyCreated, actor, constants.AuditOutcomeSuccess).
		WithResource(resourceTypeKey, rec.ID).
		WithIP(ip).
		WithDetail("algorithm", string(rec.Algorithm)).
		WithDetail("status", string(rec.Status)).
		At(s.clock.Now()))

	s.logger.Info(ctx, "key record registered",
		logger.String("key_id", rec.ID),
		logger.String("algorithm", string(rec.Algorithm)),
		logger.String("status", string(rec.Status)),
	)
	return s.keys.Get(ctx, rec.ID)
}

// Get returns the record with id.
func (s *KeyRegistryService) Get(ctx context.Context, id string) (*models.KeyRecord, error) {
	return s.keys.Get(ctx, id)
}

// UpdateMetadata applies patch to the record.
func (s *KeyRegistryService) UpdateMetadata(ctx context.Context, id string, patch models.KeyMetadataPatch) (*models.KeyRecord, error) {
	if patch.Name == nil && patch.Description == nil {
		return nil, errors.ErrValidation("patch", "nothing to update")
	}
	rec, err := s.keys.Update(ctx, id, patch.Apply)
	if err != nil {
		return nil, err
	}

	actor, ip := ActorFromContext(ctx)
	event := models.NewAuditEvent(constants.EventTypeKeyUpdated, actor, constants.AuditOutcomeSuccess).
		WithResource(resourceTypeKey, id).
		WithIP(ip).
		At(s.clock.Now())
	if patch.Name != nil {
		event.WithDetail("name", *patch.Name)
	}
	if patch.Description != nil {
		event.WithDetail("description", *patch.Description)
	}
	s.appendAudit(ctx, event)
	return rec, nil
}

// Transition applies req to the record and returns the updated record.
func (s *KeyRegistryService) Transition(ctx context.Context, id string, req models.TransitionRequest) (*models.KeyRecord, error) {
	res, err := s.ApplyTransition(ctx, id, req, "")
	if err != nil {
		return nil, err
	}
	return res.Record, nil
}

// ApplyTransition applies req as one per-record critical section. bulkToken links the
// audit and lifecycle events to a confirmed bulk action and may be empty.
func (s *KeyRegistryService) ApplyTransition(ctx context.Context, id string, req models.TransitionRequest, bulkToken string) (*TransitionResult, error) {
	now := s.clock.Now()
	var from constants.KeyStatus
	changed := false

	rec, err := s.keys.Update(ctx, id, func(r *models.KeyRecord) error {
		from = r.Status
		c, err := s.machine.Apply(r, req, now)
		if err != nil {
			return err
		}
		if !c {
			return repository.ErrSkipUpdate
		}
		changed = true
		return nil
	})

	actor, ip := ActorFromContext(ctx)

	if err != nil {
		s.metrics.RecordTransition(string(req.Action), false, string(errors.CodeOf(err)))
		if errors.IsInvalidTransition(err) {
			event := models.NewAuditEvent(constants.EventTypeTransitionDeny, actor, constants.AuditOutcomeFailure).
				WithResource(resourceTypeKey, id).
				WithIP(ip).
				WithDetail("action", string(req.Action)).
				WithDetail("from", string(from)).
				WithDetail("error", err.Error()).
				At(now)
			if bulkToken != "" {
				event.WithDetail("bulk_token", bulkToken)
			}
			s.appendAudit(ctx, event)
		}
		s.logger.Debug(ctx, "transition rejected",
			logger.String("key_id", id),
			logger.String("action", string(req.Action)),
			logger.Err(err),
		)
		return nil, err
	}

	s.metrics.RecordTransition(string(req.Action), true, "")
	if changed {
		event := models.NewAuditEvent(constants.EventTypeForAction(req.Action), actor, constants.AuditOutcomeSuccess).
			WithResource(resourceTypeKey, id).
			WithIP(ip).
			WithDetail("from", string(from)).
			WithDetail("to", string(rec.Status)).
			At(now)
		if bulkToken != "" {
			event.WithDetail("bulk_token", bulkToken)
		}
		s.appendAudit(ctx, event)
		s.publish(ctx, models.LifecycleEvent{
			KeyID:      id,
			Action:     req.Action,
			From:       from,
			To:         rec.Status,
			Actor:      actor,
			BulkToken:  bulkToken,
			OccurredAt: now,
		})
		s.logger.Info(ctx, "key transition applied",
			logger.String("key_id", id),
			logger.String("action", string(req.Action)),
			logger.String("from", string(from)),
			logger.String("to", string(rec.Status)),
		)
	}

	return &TransitionResult{Record: rec, From: from, Changed: changed}, nil
}

// Query filters, sorts and paginates the records.
func (s *KeyRegistryService) Query(ctx context.Context, q models.Query) (models.View[*models.KeyRecord], error) {
	ctx, span := s.tracer.Start(ctx, "KeyRegistry.Query")
	done := s.perf.StartOperation(ctx, "key_query")
	start := time.Now()

	view, err := s.query(ctx, q)

	monitoring.EndSpan(span, err,
		attribute.Int("query.filters", len(q.Filter)),
		attribute.String("query.sort", q.Sort.Key),
		attribute.Int("query.matched", view.Total),
	)
	if err == nil {
		s.metrics.RecordQuery(resourceTypeKey, view.Total, time.Since(start))
	}
	done(logger.Int("matched", view.Total))
	return view, err
}

func (s *KeyRegistryService) query(ctx context.Context, q models.Query) (models.View[*models.KeyRecord], error) {
	compiled, err := compileQuery(s.schema, s.sorter, q)
	if err != nil {
		return models.View[*models.KeyRecord]{}, err
	}
	records, err := s.keys.List(ctx)
	if err != nil {
		return models.View[*models.KeyRecord]{}, err
	}
	return compiled.run(records)
}

// Summary counts the stored records and refreshes the per-status gauge.
func (s *KeyRegistryService) Summary(ctx context.Context) (models.KeySummary, error) {
	records, err := s.keys.List(ctx)
	if err != nil {
		return models.KeySummary{}, err
	}
	summary := models.Summarize(records)
	for status, n := range summary.ByStatus {
		s.metrics.UpdateRecordCount(string(status), n)
	}
	return summary, nil
}

// TickExpirations expires every due pending or active record. Records that changed
// state concurrently are skipped. On cancellation the ids expired so far are returned
// together with a Cancelled error.
func (s *KeyRegistryService) TickExpirations(ctx context.Context) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "KeyRegistry.TickExpirations")
	ctx = WithActor(ctx, constants.SystemActor, "")

	expired, err := s.tickExpirations(ctx)

	monitoring.EndSpan(span, err, attribute.Int("expired", len(expired)))
	if len(expired) > 0 {
		s.metrics.RecordExpirations(len(expired))
		s.logger.Info(ctx, "expired due key records", logger.Strings("key_ids", expired))
	}
	return expired, err
}

func (s *KeyRegistryService) tickExpirations(ctx context.Context) ([]string, error) {
	records, err := s.keys.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	expired := make([]string, 0)
	for _, rec := range records {
		if !rec.Status.IsInitial() || !rec.IsDue(now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return expired, errors.ErrCancelled(err)
		}

		res, err := s.ApplyTransition(ctx, rec.ID, models.TransitionRequest{Action: constants.ActionExpire}, "")
		switch {
		case err == nil:
			if res.Changed {
				expired = append(expired, rec.ID)
			}
		case errors.IsInvalidTransition(err), errors.IsNotFound(err):
			// changed since the snapshot
		case errors.Is(err, errors.ErrKindCancelled):
			return expired, err
		default:
			s.logger.Error(ctx, "failed to expire key record", err, logger.String("key_id", rec.ID))
		}
	}
	return expired, nil
}

func (s *KeyRegistryService) appendAudit(ctx context.Context, event *models.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error(ctx, "failed to append audit event", err,
			logger.String("event_type", string(event.EventType)),
			logger.String("resource", event.ResourceRef()),
		)
	}
}

func (s *KeyRegistryService) publish(ctx context.Context, event models.LifecycleEvent) {
	if err := s.publisher.PublishLifecycleEvent(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn(ctx, "failed to publish lifecycle event",
			logger.String("key_id", event.KeyID),
			logger.String("action", string(event.Action)),
			logger.Err(err),
		)
	}
}
