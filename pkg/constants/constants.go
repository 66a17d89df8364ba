// Package constants defines system-wide constants for the key registry.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Key Status Constants
// ================================================================================

// KeyStatus represents the lifecycle status of a key record.
// Declaration order is the enum sort order.
type KeyStatus string

const (
	// KeyStatusPending indicates the key was generated but not yet activated
	KeyStatusPending KeyStatus = "pending"

	// KeyStatusActive indicates the key is in use
	KeyStatusActive KeyStatus = "active"

	// KeyStatusRotated indicates the key was superseded by rotation
	KeyStatusRotated KeyStatus = "rotated"

	// KeyStatusRevoked indicates the key was explicitly revoked (soft delete)
	KeyStatusRevoked KeyStatus = "revoked"

	// KeyStatusExpired indicates the key reached its expiration time
	KeyStatusExpired KeyStatus = "expired"
)

// KeyStatuses lists every status in declaration order.
var KeyStatuses = []KeyStatus{
	KeyStatusPending,
	KeyStatusActive,
	KeyStatusRotated,
	KeyStatusRevoked,
	KeyStatusExpired,
}

// IsValid reports whether s is a declared status.
func (s KeyStatus) IsValid() bool {
	return s.Ordinal() >= 0
}

// Ordinal returns the declaration index of s, or -1 when unknown.
func (s KeyStatus) Ordinal() int {
	for i, v := range KeyStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no further transition is permitted from s.
func (s KeyStatus) IsTerminal() bool {
	return s == KeyStatusRotated || s == KeyStatusRevoked || s == KeyStatusExpired
}

// IsInitial reports whether a record may be created in s.
func (s KeyStatus) IsInitial() bool {
	return s == KeyStatusPending || s == KeyStatusActive
}

// ================================================================================
// Lifecycle Action Constants
// ================================================================================

// LifecycleAction is a requested lifecycle transition.
type LifecycleAction string

const (
	ActionActivate LifecycleAction = "activate"
	ActionRotate   LifecycleAction = "rotate"
	ActionRevoke   LifecycleAction = "revoke"
	// ActionExpire is system-driven and only succeeds once expiresAt is reached
	ActionExpire LifecycleAction = "expire"
)

// LifecycleActions lists every action in declaration order.
var LifecycleActions = []LifecycleAction{ActionActivate, ActionRotate, ActionRevoke, ActionExpire}

// IsValid reports whether a is a declared action.
func (a LifecycleAction) IsValid() bool {
	for _, v := range LifecycleActions {
		if v == a {
			return true
		}
	}
	return false
}

// ================================================================================
// Algorithm Constants
// ================================================================================

// Algorithm identifies the key algorithm. Immutable after creation.
type Algorithm string

const (
	AlgorithmAES128GCM        Algorithm = "AES-128-GCM"
	AlgorithmAES256GCM        Algorithm = "AES-256-GCM"
	AlgorithmChaCha20Poly1305 Algorithm = "ChaCha20-Poly1305"
	AlgorithmRSA2048          Algorithm = "RSA-2048"
	AlgorithmRSA3072          Algorithm = "RSA-3072"
	AlgorithmRSA4096          Algorithm = "RSA-4096"
	AlgorithmECDSAP256        Algorithm = "ECDSA-P256"
	AlgorithmECDSAP384        Algorithm = "ECDSA-P384"
	AlgorithmEd25519          Algorithm = "Ed25519"
	AlgorithmX25519           Algorithm = "X25519"
	AlgorithmMLKEM768         Algorithm = "ML-KEM-768"
	AlgorithmMLKEM1024        Algorithm = "ML-KEM-1024"
	AlgorithmMLDSA65          Algorithm = "ML-DSA-65"
	AlgorithmSLHDSA128s       Algorithm = "SLH-DSA-128s"
)

// AlgorithmFamily groups algorithms for reporting.
type AlgorithmFamily string

const (
	FamilySymmetric   AlgorithmFamily = "symmetric"
	FamilyAsymmetric  AlgorithmFamily = "asymmetric"
	FamilyPostQuantum AlgorithmFamily = "post-quantum"
)

// Algorithms lists every algorithm in declaration order.
var Algorithms = []Algorithm{
	AlgorithmAES128GCM,
	AlgorithmAES256GCM,
	AlgorithmChaCha20Poly1305,
	AlgorithmRSA2048,
	AlgorithmRSA3072,
	AlgorithmRSA4096,
	AlgorithmECDSAP256,
	AlgorithmECDSAP384,
	AlgorithmEd25519,
	AlgorithmX25519,
	AlgorithmMLKEM768,
	AlgorithmMLKEM1024,
	AlgorithmMLDSA65,
	AlgorithmSLHDSA128s,
}

var algorithmFamilies = map[Algorithm]AlgorithmFamily{
	AlgorithmAES128GCM:        FamilySymmetric,
	AlgorithmAES256GCM:        FamilySymmetric,
	AlgorithmChaCha20Poly1305: FamilySymmetric,
	AlgorithmRSA2048:          FamilyAsymmetric,
	AlgorithmRSA3072:          FamilyAsymmetric,
	AlgorithmRSA4096:          FamilyAsymmetric,
	AlgorithmECDSAP256:        FamilyAsymmetric,
	AlgorithmECDSAP384:        FamilyAsymmetric,
	AlgorithmEd25519:          FamilyAsymmetric,
	AlgorithmX25519:           FamilyAsymmetric,
	AlgorithmMLKEM768:         FamilyPostQuantum,
	AlgorithmMLKEM1024:        FamilyPostQuantum,
	AlgorithmMLDSA65:          FamilyPostQuantum,
	AlgorithmSLHDSA128s:       FamilyPostQuantum,
}

// IsValid reports whether a is a declared algorithm.
func (a Algorithm) IsValid() bool {
	_, ok := algorithmFamilies[a]
	return ok
}

// Family returns the algorithm family, or "" when unknown.
func (a Algorithm) Family() AlgorithmFamily {
	return algorithmFamilies[a]
}

// ================================================================================
// Purpose Constants
// ================================================================================

// Purpose is the usage category of a key.
type Purpose string

const (
	PurposeEncryption     Purpose = "encryption"
	PurposeSigning        Purpose = "signing"
	PurposeAuthentication Purpose = "authentication"
	PurposeKeyExchange    Purpose = "key-exchange"
)

// Purposes lists every purpose in declaration order.
var Purposes = []Purpose{PurposeEncryption, PurposeSigning, PurposeAuthentication, PurposeKeyExchange}

// IsValid reports whether p is a declared purpose.
func (p Purpose) IsValid() bool {
	for _, v := range Purposes {
		if v == p {
			return true
		}
	}
	return false
}

// ================================================================================
// Relationship Constants
// ================================================================================

// RelationshipType links a key record to another one.
type RelationshipType string

const (
	RelationshipPredecessor RelationshipType = "predecessor"
	RelationshipSuccessor   RelationshipType = "successor"
	RelationshipBackup      RelationshipType = "backup"
	RelationshipDerived     RelationshipType = "derived"
)

// IsValid reports whether r is a declared relationship type.
func (r RelationshipType) IsValid() bool {
	switch r {
	case RelationshipPredecessor, RelationshipSuccessor, RelationshipBackup, RelationshipDerived:
		return true
	}
	return false
}

// ================================================================================
// Audit Constants
// ================================================================================

// AuditEventType represents different types of auditable events
type AuditEventType string

const (
	EventTypeKeyCreated     AuditEventType = "key.created"
	EventTypeKeyActivated   AuditEventType = "key.activated"
	EventTypeKeyRotated     AuditEventType = "key.rotated"
	EventTypeKeyRevoked     AuditEventType = "key.revoked"
	EventTypeKeyExpired     AuditEventType = "key.expired"
	EventTypeKeyUpdated     AuditEventType = "key.updated"
	EventTypeBulkRequested  AuditEventType = "bulk.requested"
	EventTypeBulkConfirmed  AuditEventType = "bulk.confirmed"
	EventTypeTransitionDeny AuditEventType = "key.transition_denied"
)

// EventTypeForAction maps a lifecycle action to the audit event it produces.
func EventTypeForAction(a LifecycleAction) AuditEventType {
	switch a {
	case ActionActivate:
		return EventTypeKeyActivated
	case ActionRotate:
		return EventTypeKeyRotated
	case ActionRevoke:
		return EventTypeKeyRevoked
	case ActionExpire:
		return EventTypeKeyExpired
	}
	return AuditEventType("key." + string(a))
}

// AuditOutcome represents the result of an audited event
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
	AuditOutcomePartial AuditOutcome = "partial"
)

// AuditOutcomes lists every outcome in declaration order.
var AuditOutcomes = []AuditOutcome{AuditOutcomeSuccess, AuditOutcomeFailure, AuditOutcomePartial}

// IsValid reports whether o is a declared outcome.
func (o AuditOutcome) IsValid() bool {
	for _, v := range AuditOutcomes {
		if v == o {
			return true
		}
	}
	return false
}

// SystemActor is the actor recorded for scheduler-driven events.
const SystemActor = "system"

// ================================================================================
// Bulk Constants
// ================================================================================

// BulkOutcomeKind tags the per-target result of a bulk action.
type BulkOutcomeKind string

const (
	BulkOutcomeApplied BulkOutcomeKind = "applied"
	BulkOutcomeSkipped BulkOutcomeKind = "skipped"
	BulkOutcomeFailed  BulkOutcomeKind = "failed"
)

// SkipReasonCancelled is reported for targets left unprocessed by cancellation.
const SkipReasonCancelled = "cancelled"

const (
	// ConfirmationDefaultTTL is how long a bulk confirmation token stays usable
	ConfirmationDefaultTTL = 5 * time.Minute

	// ConfirmationRetention is how long an expired token is remembered so that
	// confirming it reports TokenExpired instead of TokenNotFound
	ConfirmationRetention = 30 * time.Minute

	// SelectionIdleTTL is how long a session selection survives without access
	SelectionIdleTTL = 30 * time.Minute

	// BulkDefaultParallelism applies targets sequentially
	BulkDefaultParallelism = 1

	// ExpiryCheckDefaultInterval is the default scheduler period for expirations
	ExpiryCheckDefaultInterval = 1 * time.Minute
)

// ================================================================================
// Query Constants
// ================================================================================

// FilterAll is the sentinel categorical value meaning "no constraint".
const FilterAll = "all"

// WildcardSuffix marks a prefix match on IP filters.
const WildcardSuffix = "*"

// SortDirection orders a sorted view.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

const (
	// DefaultPageSize is used when a listing does not specify a limit
	DefaultPageSize = 50

	// MaxPageSize bounds a single listing page
	MaxPageSize = 500
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// ================================================================================
// Context Key Constants
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTraceID is the key for distributed trace ID in context
	ContextKeyTraceID ContextKey = "trace_id"

	// ContextKeyActor is the key for the acting user in context
	ContextKeyActor ContextKey = "actor"

	// ContextKeyClientIP is the key for client IP address in context
	ContextKeyClientIP ContextKey = "client_ip"
)

// ================================================================================
// HTTP Header Constants
// ================================================================================

const (
	HeaderRequestID = "X-Request-ID"
	HeaderActor     = "X-Actor"
	HeaderSession   = "X-Session-ID"
)

// ServiceName is used for tracing and metric namespaces.
const ServiceName = "keyreg"
