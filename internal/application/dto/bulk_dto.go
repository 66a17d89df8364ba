package dto

import (
	"time"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
)

// BulkActionRequest 批量操作请求 DTO
// Targets come from IDs, or from the caller's selection when IDs is empty.
type BulkActionRequest struct {
	Action string   `json:"action" validate:"required,lifecycle_action"`
	IDs    []string `json:"ids" validate:"omitempty,max=10000,dive,required"`
}

// ConfirmationResponse 批量操作确认响应 DTO
type ConfirmationResponse struct {
	Token     string                    `json:"token"`
	Action    constants.LifecycleAction `json:"action"`
	Count     int                       `json:"count"`
	TargetIDs []string                  `json:"target_ids"`
	Prompt    string                    `json:"prompt"`
	ExpiresAt time.Time                 `json:"expires_at"`
}

// NewConfirmationResponse builds the response shown to the user before confirming.
func NewConfirmationResponse(c *models.Confirmation) *ConfirmationResponse {
	return &ConfirmationResponse{
		Token:     c.Token,
		Action:    c.Action,
		Count:     c.Count,
		TargetIDs: c.TargetIDs,
		Prompt:    c.Prompt(),
		ExpiresAt: c.ExpiresAt,
	}
}

// SelectionRequest 选择集修改请求 DTO
type SelectionRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// SelectionResponse 选择集响应 DTO
type SelectionResponse struct {
	Session string   `json:"session"`
	IDs     []string `json:"ids"`
	Count   int      `json:"count"`
}

// NewSelectionResponse builds the response for the ids of session.
func NewSelectionResponse(session string, ids []string) *SelectionResponse {
	if ids == nil {
		ids = []string{}
	}
	return &SelectionResponse{Session: session, IDs: ids, Count: len(ids)}
}

// AuditEventRequest 审计事件上报请求 DTO
type AuditEventRequest struct {
	ID           string                 `json:"id" validate:"omitempty,max=128"`
	EventType    string                 `json:"event_type" validate:"required,max=128"`
	Timestamp    time.Time              `json:"timestamp" validate:"required"`
	Outcome      string                 `json:"outcome" validate:"required,audit_outcome"`
	ResourceType string                 `json:"resource_type" validate:"max=64"`
	ResourceID   string                 `json:"resource_id" validate:"max=128"`
	IPAddress    string                 `json:"ip_address" validate:"omitempty,ip"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// ToModel converts the request into an audit event attributed to actor.
func (r *AuditEventRequest) ToModel(actor string) *models.AuditEvent {
	return &models.AuditEvent{
		ID:           r.ID,
		EventType:    constants.AuditEventType(r.EventType),
		Actor:        actor,
		Timestamp:    r.Timestamp.UTC(),
		Outcome:      constants.AuditOutcome(r.Outcome),
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		IPAddress:    r.IPAddress,
		Details:      r.Details,
	}
}
