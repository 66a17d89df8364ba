package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/internal/domain/repository"
	"github.com/turtacn/keyreg/internal/domain/service"
	"github.com/turtacn/keyreg/internal/infrastructure/monitoring"
	"github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/logger"
)

const resourceTypeAudit = "audit_event"

// AuditLog defines the audit trail API.
// AuditLog 定义了审计日志接口。
type AuditLog interface {
	// Append records an event reported by an action-performing collaborator.
	// Append 记录执行操作的协作方上报的事件。
	Append(ctx context.Context, event *models.AuditEvent) error

	// Query returns the filtered, sorted and paginated audit events.
	// Query 返回过滤、排序和分页后的审计事件。
	Query(ctx context.Context, q models.Query) (models.View[*models.AuditEvent], error)
}

// AuditQueryService runs the filter and sort engines over the audit trail.
type AuditQueryService struct {
	events  repository.AuditEventRepository
	schema  *service.Schema[*models.AuditEvent]
	sorter  *service.Sorter[*models.AuditEvent]
	metrics service.Metrics
	tracer  trace.Tracer
	logger  logger.Logger
}

var _ AuditLog = (*AuditQueryService)(nil)

// NewAuditQueryService creates a new AuditQueryService.
func NewAuditQueryService(events repository.AuditEventRepository, metrics service.Metrics, log logger.Logger, opts ...Option) *AuditQueryService {
	o := buildOptions(opts)
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &AuditQueryService{
		events:  events,
		schema:  service.AuditSchema(),
		sorter:  service.AuditSorter(),
		metrics: metrics,
		tracer:  o.tracer,
		logger:  log.WithComponent("AuditQueryService"),
	}
}

// Append validates and stores event, assigning an id when it has none.
func (s *AuditQueryService) Append(ctx context.Context, event *models.AuditEvent) error {
	if event == nil {
		return errors.ErrValidation("event", "must not be nil")
	}
	switch {
	case event.EventType == "":
		return errors.ErrValidation("event_type", "must not be empty")
	case event.Actor == "":
		return errors.ErrValidation("actor", "must not be empty")
	case !event.Outcome.IsValid():
		return errors.ErrValidation("outcome", "unknown outcome "+string(event.Outcome))
	case event.Timestamp.IsZero():
		return errors.ErrValidation("timestamp", "must be set")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := s.events.Append(ctx, event); err != nil {
		return err
	}
	s.logger.Debug(ctx, "audit event appended",
		logger.String("event_id", event.ID),
		logger.String("event_type", string(event.EventType)),
	)
	return nil
}

// Query filters, sorts and paginates the audit trail.
func (s *AuditQueryService) Query(ctx context.Context, q models.Query) (models.View[*models.AuditEvent], error) {
	ctx, span := s.tracer.Start(ctx, "AuditLog.Query")
	start := time.Now()

	view, err := s.query(ctx, q)

	monitoring.EndSpan(span, err,
		attribute.Int("query.filters", len(q.Filter)),
		attribute.Int("query.matched", view.Total),
	)
	if err == nil {
		s.metrics.RecordQuery(resourceTypeAudit, view.Total, time.Since(start))
	}
	return view, err
}

func (s *AuditQueryService) query(ctx context.Context, q models.Query) (models.View[*models.AuditEvent], error) {
	compiled, err := compileQuery(s.schema, s.sorter, q)
	if err != nil {
		return models.View[*models.AuditEvent]{}, err
	}
	events, err := s.events.List(ctx)
	if err != nil {
		return models.View[*models.AuditEvent]{}, err
	}
	return compiled.run(events)
}
