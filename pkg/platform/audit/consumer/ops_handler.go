package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"idswyft/internal/platform/kafka/consumer"
	"idswyft/pkg/platform/audit/store/postgres"
)

// OpsStore persists operational events into the short-retention table.
type OpsStore interface {
	AppendOps(ctx context.Context, eventID uuid.UUID, record postgres.OpsRecord) error
}

// OpsHandler materializes operational audit events. The tier is
// best-effort end to end, so every failure here is logged at debug and
// the message is committed; redelivering a malformed or unstorable ops
// event would only stall the partition.
type OpsHandler struct {
	store  OpsStore
	logger *slog.Logger
}

// NewOpsHandler creates an ops event handler.
func NewOpsHandler(store OpsStore, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{store: store, logger: logger}
}

// Handle writes one operational event. It never returns an error.
func (h *OpsHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.DebugContext(ctx, "skipping ops event with bad key",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	var payload eventPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.DebugContext(ctx, "skipping undecodable ops event",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}

	record := postgres.OpsRecord{
		Timestamp:      payload.parsedTimestamp(),
		VerificationID: payload.VerificationID,
		Action:         payload.Action,
		RequestID:      payload.RequestID,
	}
	if err := h.store.AppendOps(ctx, eventID, record); err != nil {
		h.logger.DebugContext(ctx, "ops event not stored",
			"event_id", eventID,
			"action", record.Action,
			"error", err,
		)
	}
	return nil
}
