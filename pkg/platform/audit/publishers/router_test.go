package publishers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "idswyft/pkg/domain"
	audit "idswyft/pkg/platform/audit"
)

type countingEmitter struct {
	count int
}

func (e *countingEmitter) Emit(_ context.Context, _ audit.Event) error {
	e.count++
	return nil
}

func TestRouter_DispatchesByCategory(t *testing.T) {
	compliance := &countingEmitter{}
	security := &countingEmitter{}
	ops := &countingEmitter{}
	router := NewRouter(compliance, security, ops)

	tenantID := id.TenantID(uuid.New())
	ctx := context.Background()

	require.NoError(t, router.Emit(ctx, audit.Event{TenantID: tenantID, Action: string(audit.EventVerificationDecided)}))
	require.NoError(t, router.Emit(ctx, audit.Event{TenantID: tenantID, Action: string(audit.EventThresholdsUpdated)}))
	require.NoError(t, router.Emit(ctx, audit.Event{TenantID: tenantID, Action: string(audit.EventFraudAlertRaised)}))
	require.NoError(t, router.Emit(ctx, audit.Event{TenantID: tenantID, Action: string(audit.EventReuploadRequested)}))
	require.NoError(t, router.Emit(ctx, audit.Event{TenantID: tenantID, Action: string(audit.EventManualReviewQueued)}))

	assert.Equal(t, 2, compliance.count)
	assert.Equal(t, 1, security.count)
	assert.Equal(t, 2, ops.count)
}

func TestRouter_UnknownActionGoesToOps(t *testing.T) {
	compliance := &countingEmitter{}
	security := &countingEmitter{}
	ops := &countingEmitter{}
	router := NewRouter(compliance, security, ops)

	require.NoError(t, router.Emit(context.Background(), audit.Event{Action: "something_new"}))
	assert.Equal(t, 1, ops.count)
	assert.Equal(t, 0, compliance.count)
	assert.Equal(t, 0, security.count)
}
