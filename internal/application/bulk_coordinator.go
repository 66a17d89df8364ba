package application

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/keyreg/internal/config"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/internal/domain/repository"
	"github.com/turtacn/keyreg/internal/domain/service"
	"github.com/turtacn/keyreg/internal/infrastructure/monitoring"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
	"github.com/turtacn/keyreg/pkg/logger"
)

const noteAlreadyExpired = "already expired"

// BulkActions defines the two-phase bulk action API.
// BulkActions 定义了两阶段批量操作接口。
type BulkActions interface {
	// RequestBulkAction validates the request and issues a single-use confirmation.
	// RequestBulkAction 校验请求并签发一次性确认令牌。
	RequestBulkAction(ctx context.Context, action constants.LifecycleAction, ids []string) (*models.Confirmation, error)

	// Confirm consumes the token and applies the action to every target independently.
	// Confirm 消费令牌，并对每个目标独立地执行操作。
	Confirm(ctx context.Context, token string) (*models.BulkReport, error)
}

// Transitioner applies a single lifecycle transition on behalf of a bulk action.
type Transitioner interface {
	ApplyTransition(ctx context.Context, id string, req models.TransitionRequest, bulkToken string) (*TransitionResult, error)
}

// BulkCoordinator runs confirmed lifecycle actions over many records. A target's failure
// never aborts the batch and nothing is rolled back. The coordinator does not touch any
// selection; callers clear it after a confirm.
type BulkCoordinator struct {
	transitions Transitioner
	tokens      repository.ConfirmationRepository
	audit       repository.AuditEventRepository
	cfg         config.BulkConfig
	clock       service.Clock
	metrics     service.Metrics
	tracer      trace.Tracer
	logger      logger.Logger
}

var _ BulkActions = (*BulkCoordinator)(nil)

// NewBulkCoordinator creates a BulkCoordinator. Zero TTL, retention or parallelism in cfg
// fall back to the package defaults.
func NewBulkCoordinator(
	transitions Transitioner,
	tokens repository.ConfirmationRepository,
	audit repository.AuditEventRepository,
	cfg config.BulkConfig,
	metrics service.Metrics,
	log logger.Logger,
	opts ...Option,
) *BulkCoordinator {
	o := buildOptions(opts)
	if cfg.ConfirmationTTL <= 0 {
		cfg.ConfirmationTTL = constants.ConfirmationDefaultTTL
	}
	if cfg.ConfirmationRetention < cfg.ConfirmationTTL {
		cfg.ConfirmationRetention = max(constants.ConfirmationRetention, cfg.ConfirmationTTL)
	}
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = constants.BulkDefaultParallelism
	}
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &BulkCoordinator{
		transitions: transitions,
		tokens:      tokens,
		audit:       audit,
		cfg:         cfg,
		clock:       o.clock,
		metrics:     metrics,
		tracer:      o.tracer,
		logger:      log.WithComponent("BulkCoordinator"),
	}
}

// RequestBulkAction issues a confirmation for action over ids. Duplicate ids are
// collapsed keeping the first occurrence. Targets are not checked for existence here;
// missing ones are reported as failed on confirm.
func (b *BulkCoordinator) RequestBulkAction(ctx context.Context, action constants.LifecycleAction, ids []string) (*models.Confirmation, error) {
	if !action.IsValid() {
		return nil, errors.ErrValidation("action", "unknown lifecycle action "+string(action))
	}
	targets := dedupe(ids)
	if len(targets) == 0 {
		return nil, errors.ErrValidation("target_ids", "must contain at least one id")
	}

	actor, ip := ActorFromContext(ctx)
	now := b.clock.Now()
	c := &models.Confirmation{
		Token:       uuid.NewString(),
		Action:      action,
		TargetIDs:   targets,
		Count:       len(targets),
		RequestedBy: actor,
		CreatedAt:   now,
		ExpiresAt:   now.Add(b.cfg.ConfirmationTTL),
	}
	if err := b.tokens.Save(ctx, c, b.cfg.ConfirmationRetention); err != nil {
		return nil, err
	}

	b.appendAudit(ctx, models.NewAuditEvent(constants.EventTypeBulkRequested, actor, constants.AuditOutcomeSuccess).
		WithResource("bulk", c.Token).
		WithIP(ip).
		WithDetail("action", string(action)).
		WithDetail("count", c.Count).
		WithDetail("target_ids", slices.Clone(targets)).
		At(now))

	b.logger.Info(ctx, "bulk action requested",
		logger.String("token", c.Token),
		logger.String("action", string(action)),
		logger.Int("count", c.Count),
	)
	return c, nil
}

// Confirm consumes token and applies its action to every target. The report lists one
// outcome per target in request order. When ctx is cancelled mid-batch the remaining
// targets are reported as skipped and the report is returned with a Cancelled error.
func (b *BulkCoordinator) Confirm(ctx context.Context, token string) (*models.BulkReport, error) {
	ctx, span := b.tracer.Start(ctx, "BulkCoordinator.Confirm", trace.WithAttributes(attribute.String("bulk.token", token)))

	report, err := b.confirm(ctx, token)

	attrs := []attribute.KeyValue{}
	if report != nil {
		attrs = append(attrs,
			attribute.String("bulk.action", string(report.Action)),
			attribute.Int("bulk.applied", report.Applied),
			attribute.Int("bulk.skipped", report.Skipped),
			attribute.Int("bulk.failed", report.Failed),
		)
	}
	monitoring.EndSpan(span, err, attrs...)
	return report, err
}

func (b *BulkCoordinator) confirm(ctx context.Context, token string) (*models.BulkReport, error) {
	c, err := b.tokens.Take(ctx, token)
	if err != nil {
		return nil, err
	}
	started := b.clock.Now()
	if c.IsExpired(started) {
		b.logger.Warn(ctx, "bulk confirmation expired",
			logger.String("token", token),
			logger.Time("expires_at", c.ExpiresAt),
		)
		return nil, errors.ErrTokenExpired(token)
	}

	req := models.TransitionRequest{Action: c.Action}
	outcomes := make([]models.BulkOutcome, len(c.TargetIDs))

	var g errgroup.Group
	g.SetLimit(b.cfg.MaxParallel)
	for i, id := range c.TargetIDs {
		if ctx.Err() != nil {
			outcomes[i] = models.Skipped(id, constants.SkipReasonCancelled)
			continue
		}
		g.Go(func() error {
			outcomes[i] = b.applyOne(ctx, c.Token, id, req)
			return nil
		})
	}
	_ = g.Wait()

	report := &models.BulkReport{
		Token:      c.Token,
		Action:     c.Action,
		Outcomes:   outcomes,
		StartedAt:  started,
		FinishedAt: b.clock.Now(),
	}
	report.Tally()

	for _, o := range outcomes {
		b.metrics.RecordBulkOutcome(string(c.Action), string(o.Kind))
	}
	b.metrics.RecordBulkDuration(string(c.Action), len(outcomes), report.FinishedAt.Sub(report.StartedAt))

	actor, ip := ActorFromContext(ctx)
	b.appendAudit(ctx, models.NewAuditEvent(constants.EventTypeBulkConfirmed, actor, report.AuditOutcome()).
		WithResource("bulk", c.Token).
		WithIP(ip).
		WithDetail("action", string(c.Action)).
		WithDetail("applied", report.Applied).
		WithDetail("skipped", report.Skipped).
		WithDetail("failed", report.Failed).
		At(report.FinishedAt))

	b.logger.Info(ctx, "bulk action confirmed",
		logger.String("token", c.Token),
		logger.String("action", string(c.Action)),
		logger.Int("applied", report.Applied),
		logger.Int("skipped", report.Skipped),
		logger.Int("failed", report.Failed),
		logger.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)

	if err := ctx.Err(); err != nil && hasCancelled(outcomes) {
		return report, errors.ErrCancelled(err)
	}
	return report, nil
}

func (b *BulkCoordinator) applyOne(ctx context.Context, token, id string, req models.TransitionRequest) models.BulkOutcome {
	if ctx.Err() != nil {
		return models.Skipped(id, constants.SkipReasonCancelled)
	}
	res, err := b.transitions.ApplyTransition(ctx, id, req, token)
	switch {
	case errors.Is(err, errors.ErrKindCancelled):
		return models.Skipped(id, constants.SkipReasonCancelled)
	case err != nil:
		return models.Failed(id, err)
	case !res.Changed:
		return models.Applied(id, res.Record.Status, noteAlreadyExpired)
	default:
		return models.Applied(id, res.Record.Status, "")
	}
}

func (b *BulkCoordinator) appendAudit(ctx context.Context, event *models.AuditEvent) {
	if b.audit == nil {
		return
	}
	if err := b.audit.Append(context.WithoutCancel(ctx), event); err != nil {
		b.logger.Error(ctx, "failed to append audit event", err, logger.String("event_type", string(event.EventType)))
	}
}

func hasCancelled(outcomes []models.BulkOutcome) bool {
	for _, o := range outcomes {
		if o.Kind == constants.BulkOutcomeSkipped && o.Reason == constants.SkipReasonCancelled {
			return true
		}
	}
	return false
}

// dedupe drops empty and repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
