// Package postgres implements the audit store using the transactional
// outbox pattern. Events are written to the outbox table in the caller's
// transaction and published to Kafka by the outbox relay; the Kafka
// consumer materializes them back into the query tables.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "idswyft/pkg/domain"
	audit "idswyft/pkg/platform/audit"
	txcontext "idswyft/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// the consumer-side payload structs.
type outboxPayload struct {
	ID             string `json:"ID"`
	Category       string `json:"Category"`
	Timestamp      string `json:"Timestamp"`
	TenantID       string `json:"TenantID,omitempty"`
	VerificationID string `json:"VerificationID,omitempty"`
	Action         string `json:"Action"`
	Decision       string `json:"Decision,omitempty"`
	Reason         string `json:"Reason,omitempty"`
	RequestID      string `json:"RequestID,omitempty"`
	ActorID        string `json:"ActorID,omitempty"`
	Sandbox        bool   `json:"Sandbox,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// The eventCategories map is the source of truth regardless of what
	// the caller set.
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:             eventID.String(),
		Category:       string(category),
		Timestamp:      event.Timestamp.Format(time.RFC3339Nano),
		VerificationID: event.VerificationID,
		Action:         event.Action,
		Decision:       event.Decision,
		Reason:         event.Reason,
		RequestID:      event.RequestID,
		ActorID:        event.ActorID,
		Sandbox:        event.Sandbox,
	}
	if !event.TenantID.IsNil() {
		payload.TenantID = event.TenantID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	// Aggregate by verification when the event belongs to one so Kafka
	// partitioning keeps an attempt's events ordered.
	aggregateType := "audit"
	aggregateID := eventID.String()
	if event.VerificationID != "" {
		aggregateType = "verification"
		aggregateID = event.VerificationID
	} else if !event.TenantID.IsNil() {
		aggregateType = "tenant"
		aggregateID = event.TenantID.String()
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// AppendWithID inserts an audit event into the audit_events table with a
// specific ID. Used by the Kafka consumer to materialize events for
// querying. Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, tenant_id, verification_id, action,
			decision, reason, request_id, actor_id, sandbox
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	var tenantID *uuid.UUID
	if !event.TenantID.IsNil() {
		tid := uuid.UUID(event.TenantID)
		tenantID = &tid
	}

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		string(event.Category),
		event.Timestamp,
		tenantID,
		event.VerificationID,
		event.Action,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ActorID,
		event.Sandbox,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByTenant returns events for a specific tenant, newest first.
func (s *Store) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, tenant_id, verification_id, action,
			   decision, reason, request_id, actor_id, sandbox
		FROM audit_events
		WHERE tenant_id = $1
		ORDER BY timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, tenant_id, verification_id, action,
			   decision, reason, request_id, actor_id, sandbox
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

func (s *Store) scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category         string
			event            audit.Event
			tenantIDNullable *uuid.UUID
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&tenantIDNullable,
			&event.VerificationID,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.ActorID,
			&event.Sandbox,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		if tenantIDNullable != nil {
			event.TenantID = id.TenantID(*tenantIDNullable)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

// -----------------------------------------------------------------------------
// Category-specific storage for partitioned tables
// -----------------------------------------------------------------------------

// ComplianceRecord is a decision or configuration event for the
// audit_compliance table (long retention).
type ComplianceRecord struct {
	Timestamp      time.Time
	TenantID       id.TenantID
	VerificationID string
	Action         string
	Decision       string
	Reason         string
	RequestID      string
	ActorID        string
	Sandbox        bool
}

// AppendCompliance inserts a compliance event into the audit_compliance
// table. Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) AppendCompliance(ctx context.Context, eventID uuid.UUID, record ComplianceRecord) error {
	query := `
		INSERT INTO audit_compliance (
			id, timestamp, tenant_id, verification_id, action,
			decision, reason, request_id, actor_id, sandbox
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		record.Timestamp,
		uuid.UUID(record.TenantID),
		record.VerificationID,
		record.Action,
		record.Decision,
		record.Reason,
		record.RequestID,
		record.ActorID,
		record.Sandbox,
	)
	if err != nil {
		return fmt.Errorf("insert compliance event: %w", err)
	}
	return nil
}

// SecurityRecord is a fraud or tampering signal for the audit_security
// table (SIEM integration).
type SecurityRecord struct {
	Timestamp      time.Time
	TenantID       id.TenantID
	VerificationID string
	Action         string
	Reason         string
	RequestID      string
	Severity       string
}

// AppendSecurity inserts a security event into the audit_security table.
// Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) AppendSecurity(ctx context.Context, eventID uuid.UUID, record SecurityRecord) error {
	query := `
		INSERT INTO audit_security (
			id, timestamp, tenant_id, verification_id, action,
			reason, request_id, severity
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		record.Timestamp,
		uuid.UUID(record.TenantID),
		record.VerificationID,
		record.Action,
		record.Reason,
		record.RequestID,
		record.Severity,
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

// OpsRecord is an operational event for the audit_ops table (short
// retention).
type OpsRecord struct {
	Timestamp      time.Time
	VerificationID string
	Action         string
	RequestID      string
}

// AppendOps inserts an ops event into the audit_ops table.
// Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) AppendOps(ctx context.Context, eventID uuid.UUID, record OpsRecord) error {
	query := `
		INSERT INTO audit_ops (
			id, timestamp, verification_id, action, request_id
		)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id, timestamp) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		record.Timestamp,
		record.VerificationID,
		record.Action,
		record.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert ops event: %w", err)
	}
	return nil
}
