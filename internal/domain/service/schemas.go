package service

import (
	"strings"
	"time"

	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
)

// Key record filter and sort field names.
const (
	KeyFieldAlgorithm = "algorithm"
	KeyFieldFamily    = "family"
	KeyFieldPurpose   = "purpose"
	KeyFieldStatus    = "status"
)

// Audit event filter and sort field names.
const (
	AuditFieldEventType    = "eventType"
	AuditFieldOutcome      = "outcome"
	AuditFieldUser         = "user"
	AuditFieldResourceType = "resourceType"
)

// KeySchema is the filter schema for key records. Search covers name, id and
// description; the date range applies to createdAt.
func KeySchema() *Schema[*models.KeyRecord] {
	return &Schema[*models.KeyRecord]{
		Entity: "key",
		SearchFields: []func(*models.KeyRecord) string{
			func(k *models.KeyRecord) string { return k.Name },
			func(k *models.KeyRecord) string { return k.ID },
			func(k *models.KeyRecord) string { return k.Description },
		},
		Categorical: map[string]CategoricalField[*models.KeyRecord]{
			KeyFieldAlgorithm: {
				Value:   func(k *models.KeyRecord) (string, bool) { return string(k.Algorithm), k.Algorithm != "" },
				Allowed: enumStrings(constants.Algorithms),
			},
			KeyFieldFamily: {
				Value: func(k *models.KeyRecord) (string, bool) {
					f := k.Algorithm.Family()
					return string(f), f != ""
				},
				Allowed: []string{string(constants.FamilySymmetric), string(constants.FamilyAsymmetric), string(constants.FamilyPostQuantum)},
			},
			KeyFieldPurpose: {
				Value:   func(k *models.KeyRecord) (string, bool) { return string(k.Purpose), k.Purpose != "" },
				Allowed: enumStrings(constants.Purposes),
			},
			KeyFieldStatus: {
				Value:   func(k *models.KeyRecord) (string, bool) { return string(k.Status), k.Status != "" },
				Allowed: enumStrings(constants.KeyStatuses),
			},
		},
		Date: func(k *models.KeyRecord) (time.Time, bool) { return k.CreatedAt, !k.CreatedAt.IsZero() },
	}
}

// KeySorter registers the sort keys of key records.
func KeySorter() *Sorter[*models.KeyRecord] {
	return NewSorter[*models.KeyRecord]("key").
		Register("id", func(a, b *models.KeyRecord) int { return strings.Compare(a.ID, b.ID) }).
		Register("name", func(a, b *models.KeyRecord) int { return strings.Compare(a.Name, b.Name) }).
		Register(KeyFieldAlgorithm, func(a, b *models.KeyRecord) int {
			return CompareOrdinal(constants.Algorithms, a.Algorithm, b.Algorithm)
		}).
		Register(KeyFieldPurpose, func(a, b *models.KeyRecord) int {
			return CompareOrdinal(constants.Purposes, a.Purpose, b.Purpose)
		}).
		Register(KeyFieldStatus, func(a, b *models.KeyRecord) int {
			return CompareOrdinal(constants.KeyStatuses, a.Status, b.Status)
		}).
		Register("createdAt", func(a, b *models.KeyRecord) int { return CompareTimes(a.CreatedAt, b.CreatedAt) }).
		Register("expiresAt", func(a, b *models.KeyRecord) int { return CompareTimes(a.ExpiresAt, b.ExpiresAt) }).
		Register("rotatedAt", func(a, b *models.KeyRecord) int { return CompareOptionalTimes(a.RotatedAt, b.RotatedAt) }).
		Register("revokedAt", func(a, b *models.KeyRecord) int { return CompareOptionalTimes(a.RevokedAt, b.RevokedAt) })
}

// AuditSchema is the filter schema for audit events. Search covers id, actor, event
// type and the resource reference; the date range applies to the event timestamp.
func AuditSchema() *Schema[*models.AuditEvent] {
	return &Schema[*models.AuditEvent]{
		Entity: "audit event",
		SearchFields: []func(*models.AuditEvent) string{
			func(e *models.AuditEvent) string { return e.ID },
			func(e *models.AuditEvent) string { return e.Actor },
			func(e *models.AuditEvent) string { return string(e.EventType) },
			func(e *models.AuditEvent) string { return e.ResourceRef() },
		},
		Categorical: map[string]CategoricalField[*models.AuditEvent]{
			AuditFieldEventType: {
				Value: func(e *models.AuditEvent) (string, bool) { return string(e.EventType), e.EventType != "" },
			},
			AuditFieldOutcome: {
				Value:   func(e *models.AuditEvent) (string, bool) { return string(e.Outcome), e.Outcome != "" },
				Allowed: enumStrings(constants.AuditOutcomes),
			},
			AuditFieldUser: {
				Value: func(e *models.AuditEvent) (string, bool) { return e.Actor, e.Actor != "" },
			},
			AuditFieldResourceType: {
				Value: func(e *models.AuditEvent) (string, bool) { return e.ResourceType, e.ResourceType != "" },
			},
		},
		Date: func(e *models.AuditEvent) (time.Time, bool) { return e.Timestamp, !e.Timestamp.IsZero() },
		IP:   func(e *models.AuditEvent) (string, bool) { return e.IPAddress, e.IPAddress != "" },
	}
}

// AuditSorter registers the sort keys of audit events.
func AuditSorter() *Sorter[*models.AuditEvent] {
	return NewSorter[*models.AuditEvent]("audit event").
		Register("timestamp", func(a, b *models.AuditEvent) int { return CompareTimes(a.Timestamp, b.Timestamp) }).
		Register(AuditFieldEventType, func(a, b *models.AuditEvent) int {
			return strings.Compare(string(a.EventType), string(b.EventType))
		}).
		Register(AuditFieldUser, func(a, b *models.AuditEvent) int { return strings.Compare(a.Actor, b.Actor) }).
		Register(AuditFieldOutcome, func(a, b *models.AuditEvent) int {
			return CompareOrdinal(constants.AuditOutcomes, a.Outcome, b.Outcome)
		}).
		Register("resource", func(a, b *models.AuditEvent) int { return strings.Compare(a.ResourceRef(), b.ResourceRef()) })
}

func enumStrings[E ~string](values []E) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
