package service

import (
	"time"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

type transitionRule struct {
	from []constants.KeyStatus
	to   constants.KeyStatus
	// reason explains why the action is refused outside of from
	reason string
}

// lifecycleRules is the complete transition table. Any (status, action) pair not
// covered here is an InvalidTransition.
var lifecycleRules = map[constants.LifecycleAction]transitionRule{
	constants.ActionActivate: {
		from:   []constants.KeyStatus{constants.KeyStatusPending},
		to:     constants.KeyStatusActive,
		reason: "only pending keys can be activated",
	},
	constants.ActionRotate: {
		from:   []constants.KeyStatus{constants.KeyStatusActive},
		to:     constants.KeyStatusRotated,
		reason: "only active keys can be rotated",
	},
	constants.ActionRevoke: {
		from:   []constants.KeyStatus{constants.KeyStatusActive},
		to:     constants.KeyStatusRevoked,
		reason: "only active keys can be revoked",
	},
	constants.ActionExpire: {
		from:   []constants.KeyStatus{constants.KeyStatusPending, constants.KeyStatusActive},
		to:     constants.KeyStatusExpired,
		reason: "only pending or active keys can expire",
	},
}

// LifecycleMachine validates and applies lifecycle transitions to key records.
// It is stateless and safe for concurrent use.
type LifecycleMachine struct{}

// NewLifecycleMachine creates a LifecycleMachine.
func NewLifecycleMachine() *LifecycleMachine {
	return &LifecycleMachine{}
}

// NextStatus returns the status reached by applying action to from.
func NextStatus(from constants.KeyStatus, action constants.LifecycleAction) (constants.KeyStatus, bool) {
	rule, ok := lifecycleRules[action]
	if !ok {
		return "", false
	}
	for _, s := range rule.from {
		if s == from {
			return rule.to, true
		}
	}
	return "", false
}

// Apply validates req against rec and, when permitted, mutates rec in place.
// changed is false for an idempotent expire of an already expired record.
// On error rec is left untouched.
func (m *LifecycleMachine) Apply(rec *models.KeyRecord, req models.TransitionRequest, now time.Time) (changed bool, err error) {
	if !req.Action.IsValid() {
		return false, errors.ErrValidation("action", "unknown lifecycle action "+string(req.Action))
	}

	if req.Action == constants.ActionExpire && rec.Status == constants.KeyStatusExpired {
		return false, nil
	}

	to, ok := NextStatus(rec.Status, req.Action)
	if !ok {
		reason := lifecycleRules[req.Action].reason
		if rec.Status.IsTerminal() {
			reason = "state " + string(rec.Status) + " is terminal"
		}
		return false, errors.ErrInvalidTransition(rec.ID, string(rec.Status), string(req.Action), reason)
	}

	if req.Action == constants.ActionExpire && !rec.IsDue(now) {
		return false, errors.ErrInvalidTransition(rec.ID, string(rec.Status), string(req.Action), "expiration time not reached")
	}

	var newExpiry time.Time
	if req.Action == constants.ActionRotate && req.NewExpiresAt != nil {
		newExpiry = req.NewExpiresAt.UTC()
		if !newExpiry.After(rec.ExpiresAt) {
			return false, errors.ErrValidation("new_expires_at", "rotation may only extend expires_at")
		}
	}

	stamp := now.UTC()
	rec.Status = to
	switch req.Action {
	case constants.ActionRotate:
		rec.RotatedAt = &stamp
		if !newExpiry.IsZero() {
			rec.ExpiresAt = newExpiry
		}
	case constants.ActionRevoke:
		rec.RevokedAt = &stamp
	case constants.ActionExpire:
		rec.ExpiredAt = &stamp
	}
	return true, nil
}

// ValidateRecordChange guards every store update: immutable fields stay put, status
// only moves along a transition edge and one-shot timestamps are set exactly once.
func ValidateRecordChange(prev, next *models.KeyRecord) error {
	if next.ID != prev.ID {
		return errors.ErrValidation("id", "is immutable")
	}
	if next.Algorithm != prev.Algorithm {
		return errors.ErrValidation("algorithm", "is immutable")
	}
	if !next.CreatedAt.Equal(prev.CreatedAt) {
		return errors.ErrValidation("created_at", "is immutable")
	}
	if !next.ExpiresAt.After(next.CreatedAt) {
		return errors.ErrValidation("expires_at", "must be after created_at")
	}

	statusChanged := next.Status != prev.Status
	if statusChanged && !isTransitionEdge(prev.Status, next.Status) {
		return errors.ErrInvalidTransition(prev.ID, string(prev.Status), "set status "+string(next.Status), "not a lifecycle transition")
	}

	if !next.ExpiresAt.Equal(prev.ExpiresAt) {
		rotating := prev.Status == constants.KeyStatusActive && next.Status == constants.KeyStatusRotated
		if !rotating || !next.ExpiresAt.After(prev.ExpiresAt) {
			return errors.ErrValidation("expires_at", "may only be extended by rotation")
		}
	}

	if err := checkSetOnce("rotated_at", prev.RotatedAt, next.RotatedAt, statusChanged && next.Status == constants.KeyStatusRotated); err != nil {
		return err
	}
	if err := checkSetOnce("revoked_at", prev.RevokedAt, next.RevokedAt, statusChanged && next.Status == constants.KeyStatusRevoked); err != nil {
		return err
	}
	return checkSetOnce("expired_at", prev.ExpiredAt, next.ExpiredAt, statusChanged && next.Status == constants.KeyStatusExpired)
}

func isTransitionEdge(from, to constants.KeyStatus) bool {
	for _, action := range constants.LifecycleActions {
		if next, ok := NextStatus(from, action); ok && next == to {
			return true
		}
	}
	return false
}

func checkSetOnce(field string, prev, next *time.Time, settable bool) error {
	switch {
	case prev != nil && (next == nil || !next.Equal(*prev)):
		return errors.ErrValidation(field, "is set once and cannot change")
	case prev == nil && next != nil && !settable:
		return errors.ErrValidation(field, "is only set by its lifecycle transition")
	}
	return nil
}
