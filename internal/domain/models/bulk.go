package models

import (
	"fmt"
	"time"

	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

// TransitionRequest is a single lifecycle action against one record.
type TransitionRequest struct {
	Action constants.LifecycleAction `json:"action"`
	// NewExpiresAt optionally extends expiresAt on rotation; ignored for other actions.
	NewExpiresAt *time.Time `json:"new_expires_at,omitempty"`
}

// Confirmation is the pending approval of a bulk action. The caller must present it
// (action and affected count) to the user before confirming.
type Confirmation struct {
	Token       string                    `json:"token"`
	Action      constants.LifecycleAction `json:"action"`
	TargetIDs   []string                  `json:"target_ids"`
	Count       int                       `json:"count"`
	RequestedBy string                    `json:"requested_by,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	ExpiresAt   time.Time                 `json:"expires_at"`
}

// Prompt renders the human-readable confirmation text.
func (c *Confirmation) Prompt() string {
	noun := "keys"
	if c.Count == 1 {
		noun = "key"
	}
	return fmt.Sprintf("%s %d %s?", c.Action, c.Count, noun)
}

// IsExpired reports whether the confirmation window has passed.
func (c *Confirmation) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// BulkOutcome is the tagged per-target result of a bulk action.
type BulkOutcome struct {
	ID     string                    `json:"id"`
	Kind   constants.BulkOutcomeKind `json:"kind"`
	Reason string                    `json:"reason,omitempty"`
	Code   errors.Code               `json:"code,omitempty"`
	Error  string                    `json:"error,omitempty"`
	Status constants.KeyStatus       `json:"status,omitempty"`
	Err    error                     `json:"-"`
}

// Applied records a transition that took effect (or an idempotent no-op success).
func Applied(id string, status constants.KeyStatus, note string) BulkOutcome {
	return BulkOutcome{ID: id, Kind: constants.BulkOutcomeApplied, Status: status, Reason: note}
}

// Skipped records a target that was not processed.
func Skipped(id, reason string) BulkOutcome {
	return BulkOutcome{ID: id, Kind: constants.BulkOutcomeSkipped, Reason: reason}
}

// Failed records a target whose transition returned an error.
func Failed(id string, err error) BulkOutcome {
	return BulkOutcome{ID: id, Kind: constants.BulkOutcomeFailed, Code: errors.CodeOf(err), Error: err.Error(), Err: err}
}

// BulkReport lists the outcome of every target in request order.
type BulkReport struct {
	Token      string                    `json:"token"`
	Action     constants.LifecycleAction `json:"action"`
	Outcomes   []BulkOutcome             `json:"outcomes"`
	Applied    int                       `json:"applied"`
	Skipped    int                       `json:"skipped"`
	Failed     int                       `json:"failed"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
}

// Tally recomputes the summary counters from the outcomes.
func (r *BulkReport) Tally() {
	r.Applied, r.Skipped, r.Failed = 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.Kind {
		case constants.BulkOutcomeApplied:
			r.Applied++
		case constants.BulkOutcomeSkipped:
			r.Skipped++
		case constants.BulkOutcomeFailed:
			r.Failed++
		}
	}
}

// Outcome returns the outcome for id.
func (r *BulkReport) Outcome(id string) (BulkOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.ID == id {
			return o, true
		}
	}
	return BulkOutcome{}, false
}

// AppliedIDs returns the ids whose transition took effect, in request order.
func (r *BulkReport) AppliedIDs() []string {
	ids := make([]string, 0, r.Applied)
	for _, o := range r.Outcomes {
		if o.Kind == constants.BulkOutcomeApplied {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// AuditOutcome summarizes the report as an audit outcome.
func (r *BulkReport) AuditOutcome() constants.AuditOutcome {
	switch {
	case r.Skipped == 0 && r.Failed == 0:
		return constants.AuditOutcomeSuccess
	case r.Applied == 0:
		return constants.AuditOutcomeFailure
	default:
		return constants.AuditOutcomePartial
	}
}

// LifecycleEvent is published for every applied transition.
type LifecycleEvent struct {
	KeyID      string                    `json:"key_id"`
	Action     constants.LifecycleAction `json:"action"`
	From       constants.KeyStatus       `json:"from"`
	To         constants.KeyStatus       `json:"to"`
	Actor      string                    `json:"actor"`
	BulkToken  string                    `json:"bulk_token,omitempty"`
	OccurredAt time.Time                 `json:"occurred_at"`
}
