package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"idswyft/internal/platform/kafka/consumer"
	id "idswyft/pkg/domain"
	"idswyft/pkg/platform/audit/store/postgres"
)

// ComplianceStore persists compliance events into the long-retention
// table.
type ComplianceStore interface {
	AppendCompliance(ctx context.Context, eventID uuid.UUID, record postgres.ComplianceRecord) error
}

// ComplianceHandler materializes compliance audit events. Storage errors
// are returned so the message is redelivered; malformed messages are
// logged loudly and committed, since no number of retries will fix them.
type ComplianceHandler struct {
	store  ComplianceStore
	logger *slog.Logger
}

// NewComplianceHandler creates a compliance event handler.
func NewComplianceHandler(store ComplianceStore, logger *slog.Logger) *ComplianceHandler {
	return &ComplianceHandler{store: store, logger: logger}
}

// Handle writes one compliance event.
func (h *ComplianceHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: compliance event has unparseable key",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	var payload eventPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: compliance event undecodable",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}
	if payload.TenantID == "" {
		h.logger.ErrorContext(ctx, "CRITICAL: compliance event missing tenant",
			"event_id", eventID,
			"action", payload.Action,
		)
		return nil
	}

	record := postgres.ComplianceRecord{
		Timestamp:      payload.parsedTimestamp(),
		VerificationID: payload.VerificationID,
		Action:         payload.Action,
		Decision:       payload.Decision,
		Reason:         payload.Reason,
		RequestID:      payload.RequestID,
		ActorID:        payload.ActorID,
		Sandbox:        payload.Sandbox,
	}
	if tenantID, err := id.ParseTenantID(payload.TenantID); err == nil {
		record.TenantID = tenantID
	}

	if err := h.store.AppendCompliance(ctx, eventID, record); err != nil {
		h.logger.ErrorContext(ctx, "compliance event not stored, will retry",
			"event_id", eventID,
			"action", record.Action,
			"error", err,
		)
		return fmt.Errorf("store compliance event: %w", err)
	}

	h.logger.DebugContext(ctx, "stored compliance event",
		"event_id", eventID,
		"action", record.Action,
		"tenant_id", record.TenantID,
	)
	return nil
}
