package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"idswyft/internal/platform/kafka/consumer"
	id "idswyft/pkg/domain"
	audit "idswyft/pkg/platform/audit"
	"idswyft/pkg/platform/audit/store/postgres"
)

// SecurityStore persists security events into the SIEM-facing table.
type SecurityStore interface {
	AppendSecurity(ctx context.Context, eventID uuid.UUID, record postgres.SecurityRecord) error
}

// SecurityHandler materializes security audit events, tagging each with a
// severity derived from its action so downstream alerting can filter on
// it.
type SecurityHandler struct {
	store  SecurityStore
	logger *slog.Logger
}

// NewSecurityHandler creates a security event handler.
func NewSecurityHandler(store SecurityStore, logger *slog.Logger) *SecurityHandler {
	return &SecurityHandler{store: store, logger: logger}
}

// Handle writes one security event. Storage errors are returned for
// redelivery; malformed messages are logged and committed.
func (h *SecurityHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.WarnContext(ctx, "security event has unparseable key",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	var payload eventPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.WarnContext(ctx, "security event undecodable",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}

	record := postgres.SecurityRecord{
		Timestamp:      payload.parsedTimestamp(),
		VerificationID: payload.VerificationID,
		Action:         payload.Action,
		Reason:         payload.Reason,
		RequestID:      payload.RequestID,
		Severity:       severityFor(payload.Action),
	}
	if tenantID, err := id.ParseTenantID(payload.TenantID); err == nil {
		record.TenantID = tenantID
	}

	if err := h.store.AppendSecurity(ctx, eventID, record); err != nil {
		h.logger.ErrorContext(ctx, "security event not stored, will retry",
			"event_id", eventID,
			"action", record.Action,
			"error", err,
		)
		return fmt.Errorf("store security event: %w", err)
	}

	h.logger.DebugContext(ctx, "stored security event",
		"event_id", eventID,
		"action", record.Action,
		"severity", record.Severity,
	)
	return nil
}

// Fraud alerts page someone; everything else is informational.
func severityFor(action string) string {
	if action == string(audit.EventFraudAlertRaised) {
		return "critical"
	}
	return "info"
}
