package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/keyreg/pkg/constants"
)

// AuditEvent represents a single recorded system action. Events are append-only and
// immutable once written.
type AuditEvent struct {
	ID           string                   `json:"id"`
	EventType    constants.AuditEventType `json:"event_type"`
	Actor        string                   `json:"actor"`
	Timestamp    time.Time                `json:"timestamp"`
	Outcome      constants.AuditOutcome   `json:"outcome"`
	ResourceType string                   `json:"resource_type,omitempty"`
	ResourceID   string                   `json:"resource_id,omitempty"`
	IPAddress    string                   `json:"ip_address,omitempty"`
	Details      map[string]interface{}   `json:"details,omitempty"`
}

// NewAuditEvent creates a new audit event entry.
func NewAuditEvent(eventType constants.AuditEventType, actor string, outcome constants.AuditOutcome) *AuditEvent {
	return &AuditEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Actor:     actor,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
}

// WithResource sets the resource reference for the audit event.
func (a *AuditEvent) WithResource(resourceType, resourceID string) *AuditEvent {
	a.ResourceType = resourceType
	a.ResourceID = resourceID
	return a
}

// WithIP sets the originating IP address.
func (a *AuditEvent) WithIP(ip string) *AuditEvent {
	a.IPAddress = ip
	return a
}

// WithDetail adds a structured detail entry.
func (a *AuditEvent) WithDetail(key string, value interface{}) *AuditEvent {
	if a.Details == nil {
		a.Details = make(map[string]interface{})
	}
	a.Details[key] = value
	return a
}

// At overrides the event timestamp.
func (a *AuditEvent) At(ts time.Time) *AuditEvent {
	a.Timestamp = ts.UTC()
	return a
}

// Clone returns a copy whose detail map is not shared with a.
func (a *AuditEvent) Clone() *AuditEvent {
	if a == nil {
		return nil
	}
	c := *a
	if a.Details != nil {
		c.Details = make(map[string]interface{}, len(a.Details))
		for k, v := range a.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// ResourceRef renders the resource reference as "type/id".
func (a *AuditEvent) ResourceRef() string {
	if a.ResourceType == "" {
		return a.ResourceID
	}
	return a.ResourceType + "/" + a.ResourceID
}
