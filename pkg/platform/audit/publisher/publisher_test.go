package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "idswyft/pkg/domain"
	audit "idswyft/pkg/platform/audit"
	"idswyft/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	tenantID := id.TenantID(uuid.New())
	event := audit.Event{
		TenantID: tenantID,
		Action:   string(audit.EventVerificationDecided),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventVerificationDecided), events[0].Action)
}

func TestPublisher_DerivesCategoryFromAction(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	tenantID := id.TenantID(uuid.New())
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		TenantID: tenantID,
		Action:   string(audit.EventFraudAlertRaised),
	}))

	events, err := pub.List(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	tenantID := id.TenantID(uuid.New())
	event := audit.Event{
		TenantID: tenantID,
		Action:   string(audit.EventThresholdsUpdated),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Wait for async processing
	time.Sleep(100 * time.Millisecond)

	events, err := pub.List(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventThresholdsUpdated), events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	tenantID := id.TenantID(uuid.New())
	for i := 0; i < 10; i++ {
		err := pub.Emit(context.Background(), audit.Event{
			TenantID: tenantID,
			Action:   string(audit.EventVerificationDecided),
		})
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	events, err := store.ListByTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	tenantID := id.TenantID(uuid.New())

	// Fill the buffer with concurrent writes; some emits may report
	// ErrBufferFull, none may panic or block.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), audit.Event{
				TenantID: tenantID,
				Action:   string(audit.EventReuploadRequested),
			})
		}()
	}
	wg.Wait()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	tenantID := id.TenantID(uuid.New())

	before := time.Now()
	err := pub.Emit(context.Background(), audit.Event{
		TenantID: tenantID,
		Action:   string(audit.EventVerificationDecided),
	})
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.List(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.True(t, !events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.True(t, !events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	tenantID := id.TenantID(uuid.New())
	customTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := pub.Emit(context.Background(), audit.Event{
		TenantID:  tenantID,
		Action:    string(audit.EventVerificationDecided),
		Timestamp: customTime,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_DifferentTenants(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	tenantID1 := id.TenantID(uuid.New())
	tenantID2 := id.TenantID(uuid.New())

	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		TenantID: tenantID1,
		Action:   string(audit.EventVerificationDecided),
	}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		TenantID: tenantID2,
		Action:   string(audit.EventFraudAlertRaised),
	}))

	events1, err := pub.List(context.Background(), tenantID1)
	require.NoError(t, err)
	require.Len(t, events1, 1)
	assert.Equal(t, string(audit.EventVerificationDecided), events1[0].Action)

	events2, err := pub.List(context.Background(), tenantID2)
	require.NoError(t, err)
	require.Len(t, events2, 1)
	assert.Equal(t, string(audit.EventFraudAlertRaised), events2[0].Action)
}
