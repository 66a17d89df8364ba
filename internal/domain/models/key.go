package models

import (
	"strings"
	"time"

	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

// KeyRecord represents the metadata of a cryptographic key. It never holds key material.
// Status is owned by the lifecycle state machine; the record store rejects any status
// change that does not follow a legal lifecycle edge.
type KeyRecord struct {
	// ID is the unique, immutable identifier assigned at creation. Never reused.
	ID string `json:"id"`
	// Name is a mutable human-readable label.
	Name string `json:"name"`
	// Algorithm is immutable after creation.
	Algorithm constants.Algorithm `json:"algorithm"`
	// Purpose is the usage category of the key.
	Purpose constants.Purpose `json:"purpose"`
	// Status is the current lifecycle state.
	Status constants.KeyStatus `json:"status"`
	// CreatedAt is set once at creation.
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is always strictly after CreatedAt and may only be extended by rotation.
	ExpiresAt time.Time `json:"expires_at"`
	// RotatedAt is set exactly once by the rotate transition.
	RotatedAt *time.Time `json:"rotated_at,omitempty"`
	// RevokedAt is set exactly once by the revoke transition.
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	// ExpiredAt records when the expire transition was applied.
	ExpiredAt *time.Time `json:"expired_at,omitempty"`
	// Description is mutable free text.
	Description string `json:"description,omitempty"`
	// Relationships are supplied by the generation collaborator and stored verbatim.
	Relationships []KeyRelationship `json:"relationships,omitempty"`
	// UpdatedAt is refreshed on every committed update.
	UpdatedAt time.Time `json:"updated_at"`
}

// KeyRelationship links a record to another key record.
type KeyRelationship struct {
	Type  constants.RelationshipType `json:"type"`
	KeyID string                     `json:"key_id"`
}

// Clone returns a deep copy of the record.
func (k *KeyRecord) Clone() *KeyRecord {
	if k == nil {
		return nil
	}
	c := *k
	c.RotatedAt = cloneTime(k.RotatedAt)
	c.RevokedAt = cloneTime(k.RevokedAt)
	c.ExpiredAt = cloneTime(k.ExpiredAt)
	if k.Relationships != nil {
		c.Relationships = make([]KeyRelationship, len(k.Relationships))
		copy(c.Relationships, k.Relationships)
	}
	return &c
}

// IsDue reports whether the record has reached its expiration time.
func (k *KeyRecord) IsDue(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

// ValidateNew checks a fully formed initial record handed over by the generation service.
func (k *KeyRecord) ValidateNew() error {
	if strings.TrimSpace(k.ID) == "" {
		return errors.ErrValidation("id", "must not be empty")
	}
	if strings.TrimSpace(k.Name) == "" {
		return errors.ErrValidation("name", "must not be empty")
	}
	if !k.Algorithm.IsValid() {
		return errors.ErrValidation("algorithm", "unknown algorithm "+string(k.Algorithm))
	}
	if !k.Purpose.IsValid() {
		return errors.ErrValidation("purpose", "unknown purpose "+string(k.Purpose))
	}
	if !k.Status.IsInitial() {
		return errors.ErrValidation("status", "records are created pending or active, got "+string(k.Status))
	}
	if k.CreatedAt.IsZero() {
		return errors.ErrValidation("created_at", "must be set")
	}
	if !k.ExpiresAt.After(k.CreatedAt) {
		return errors.ErrValidation("expires_at", "must be after created_at")
	}
	if k.RotatedAt != nil || k.RevokedAt != nil || k.ExpiredAt != nil {
		return errors.ErrValidation("status", "transition timestamps must be empty on creation")
	}
	for _, rel := range k.Relationships {
		if !rel.Type.IsValid() {
			return errors.ErrValidation("relationships", "unknown relationship type "+string(rel.Type))
		}
		if rel.KeyID == "" {
			return errors.ErrValidation("relationships", "key_id must not be empty")
		}
	}
	return nil
}

// KeyMetadataPatch carries the mutable, non-lifecycle fields of a record.
type KeyMetadataPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Apply writes the patch onto rec.
func (p KeyMetadataPatch) Apply(rec *KeyRecord) error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return errors.ErrValidation("name", "must not be empty")
		}
		rec.Name = *p.Name
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	return nil
}

// KeySummary counts records per status and algorithm.
type KeySummary struct {
	Total       int                         `json:"total"`
	ByStatus    map[constants.KeyStatus]int `json:"by_status"`
	ByAlgorithm map[constants.Algorithm]int `json:"by_algorithm"`
	ByPurpose   map[constants.Purpose]int   `json:"by_purpose"`
}

// Summarize builds a KeySummary over records.
func Summarize(records []*KeyRecord) KeySummary {
	s := KeySummary{
		ByStatus:    make(map[constants.KeyStatus]int, len(constants.KeyStatuses)),
		ByAlgorithm: make(map[constants.Algorithm]int),
		ByPurpose:   make(map[constants.Purpose]int),
	}
	for _, st := range constants.KeyStatuses {
		s.ByStatus[st] = 0
	}
	for _, r := range records {
		s.Total++
		s.ByStatus[r.Status]++
		s.ByAlgorithm[r.Algorithm]++
		s.ByPurpose[r.Purpose]++
	}
	return s
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
