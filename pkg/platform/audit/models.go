// Package audit defines the audit event model shared by the verification
// pipeline and the threshold admin surface, plus the outbox store and the
// Kafka publisher that drain it.
package audit

import (
	"time"

	id "idswyft/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: verification decisions, threshold configuration changes.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to fraud monitoring and
	// forensics. These feed into alerting pipelines.
	// Examples: fraud alerts, tampering signals.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	// Examples: reupload prompts, cache invalidations.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	TenantID  id.TenantID
	// VerificationID identifies the verification the event belongs to.
	// Empty for configuration events.
	VerificationID string
	Action         string
	// Decision carries the terminal status for decision events
	// (verified, failed, manual_review).
	Decision string
	// Reason carries the failure kind for failed decisions.
	Reason    string
	RequestID string
	// ActorID tracks who performed the action for admin operations.
	ActorID string
	// Sandbox marks events produced under sandbox credentials so consumers
	// can exclude them from compliance reporting.
	Sandbox bool
}

type AuditEvent string

const (
	// Verification events
	EventVerificationStarted AuditEvent = "verification_started"
	EventVerificationDecided AuditEvent = "verification_decided"
	EventReuploadRequested   AuditEvent = "reupload_requested"
	EventManualReviewQueued  AuditEvent = "manual_review_queued"
	EventFraudAlertRaised    AuditEvent = "fraud_alert_raised"

	// Threshold events
	EventThresholdsUpdated AuditEvent = "thresholds_updated"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventVerificationDecided: CategoryCompliance,
	EventThresholdsUpdated:   CategoryCompliance,

	EventFraudAlertRaised: CategorySecurity,

	EventVerificationStarted: CategoryOperations,
	EventReuploadRequested:   CategoryOperations,
	EventManualReviewQueued:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
