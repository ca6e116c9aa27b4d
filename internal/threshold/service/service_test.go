package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"idswyft/internal/threshold/models"
	"idswyft/internal/threshold/store/thresholds"
	id "idswyft/pkg/domain"
	dErrors "idswyft/pkg/domain-errors"
	"idswyft/pkg/platform/audit"
	"idswyft/pkg/requestcontext"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Emit(_ context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// countingStore wraps the memory store to observe read traffic.
type countingStore struct {
	*thresholds.MemoryStore
	mu    sync.Mutex
	finds int
}

func (s *countingStore) Find(ctx context.Context, tenantID id.TenantID) (*models.ThresholdSet, error) {
	s.mu.Lock()
	s.finds++
	s.mu.Unlock()
	return s.MemoryStore.Find(ctx, tenantID)
}

func (s *countingStore) findCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds
}

type ServiceSuite struct {
	suite.Suite
	store     *countingStore
	publisher *recordingPublisher
	svc       *Service
	tenantID  id.TenantID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = &countingStore{MemoryStore: thresholds.NewMemory()}
	s.publisher = &recordingPublisher{}
	svc, err := New(s.store, WithAuditPublisher(s.publisher))
	s.Require().NoError(err)
	s.svc = svc
	s.tenantID = id.TenantID(uuid.New())
}

func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }

func (s *ServiceSuite) TestNewRequiresStore() {
	_, err := New(nil)
	s.Error(err)
}

func (s *ServiceSuite) TestResolveUnknownTenantUsesDefaults() {
	eff, err := s.svc.Resolve(context.Background(), s.tenantID, false)
	s.Require().NoError(err)

	s.Equal(models.DefaultAutoApprove, eff.AutoApprove)
	s.Equal(models.DefaultManualReview, eff.ManualReview)
	s.True(eff.RequireLiveness)
}

func (s *ServiceSuite) TestResolveRejectsNilTenant() {
	_, err := s.svc.Resolve(context.Background(), id.TenantID{}, false)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestResolveCachesStoreReads() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.svc.Resolve(ctx, s.tenantID, i%2 == 0)
		s.Require().NoError(err)
	}

	s.Equal(1, s.store.findCount(), "repeated resolves should hit the cache")
}

func (s *ServiceSuite) TestUpdateThenResolveObservesNewValues() {
	ctx := context.Background()

	updated, err := s.svc.Update(ctx, s.tenantID, models.Update{
		AutoApproveThreshold: f(95),
	})
	s.Require().NoError(err)
	s.Equal(1, updated.Version)

	eff, err := s.svc.Resolve(ctx, s.tenantID, false)
	s.Require().NoError(err)
	s.Equal(95.0, eff.AutoApprove)
	// The derived face-match threshold follows the knob up.
	s.InDelta(0.90, eff.FaceMatch, 0.0001)
}

// A resolve cached before an update must not survive the update.
func (s *ServiceSuite) TestUpdateInvalidatesCache() {
	ctx := context.Background()

	eff, err := s.svc.Resolve(ctx, s.tenantID, false)
	s.Require().NoError(err)
	s.Equal(models.DefaultAutoApprove, eff.AutoApprove)

	_, err = s.svc.Update(ctx, s.tenantID, models.Update{AutoApproveThreshold: f(92)})
	s.Require().NoError(err)

	eff, err = s.svc.Resolve(ctx, s.tenantID, false)
	s.Require().NoError(err)
	s.Equal(92.0, eff.AutoApprove)
}

func (s *ServiceSuite) TestUpdateRejectsInvertedThresholds() {
	ctx := context.Background()

	_, err := s.svc.Update(ctx, s.tenantID, models.Update{
		AutoApproveThreshold:  f(60),
		ManualReviewThreshold: f(70),
	})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(dErrors.FieldsOf(err), "manual_review_threshold")

	// Nothing was persisted and resolution still serves defaults.
	eff, resolveErr := s.svc.Resolve(ctx, s.tenantID, false)
	s.Require().NoError(resolveErr)
	s.Equal(models.DefaultAutoApprove, eff.AutoApprove)
	s.Zero(s.publisher.count())
}

func (s *ServiceSuite) TestUpdateValidatesMergedResult() {
	ctx := context.Background()

	_, err := s.svc.Update(ctx, s.tenantID, models.Update{ManualReviewThreshold: f(70)})
	s.Require().NoError(err)

	// Lowering auto-approve below the stored manual-review value must fail
	// even though the update alone looks harmless.
	_, err = s.svc.Update(ctx, s.tenantID, models.Update{AutoApproveThreshold: f(65)})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestUpdateIsIdempotent() {
	ctx := context.Background()
	update := models.Update{AutoApproveThreshold: f(90), RequireBackOfID: b(true)}

	first, err := s.svc.Update(ctx, s.tenantID, update)
	s.Require().NoError(err)
	s.Equal(1, first.Version)

	second, err := s.svc.Update(ctx, s.tenantID, update)
	s.Require().NoError(err)
	s.Equal(1, second.Version, "retried identical update must not bump the version")
	s.Equal(1, s.publisher.count(), "retried identical update must not re-emit audit")
}

// A retried update carrying overrides arrives with freshly allocated
// pointers; it must still be recognized as identical.
func (s *ServiceSuite) TestUpdateWithOverridesIsIdempotent() {
	ctx := context.Background()

	first, err := s.svc.Update(ctx, s.tenantID, models.Update{
		Overrides: &models.TechnicalOverrides{CrossValidation: f(0.8)},
	})
	s.Require().NoError(err)
	s.Equal(1, first.Version)

	second, err := s.svc.Update(ctx, s.tenantID, models.Update{
		Overrides: &models.TechnicalOverrides{CrossValidation: f(0.8)},
	})
	s.Require().NoError(err)
	s.Equal(1, second.Version, "retried override update must not bump the version")
	s.Equal(1, s.publisher.count(), "retried override update must not re-emit audit")
}

func (s *ServiceSuite) TestUpdateEmitsAuditEvent() {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithActorID(ctx, "ops@example.com")
	ctx = requestcontext.WithRequestID(ctx, "req-123")

	_, err := s.svc.Update(ctx, s.tenantID, models.Update{AutoApproveThreshold: f(88)})
	s.Require().NoError(err)

	s.Require().Equal(1, s.publisher.count())
	event := s.publisher.events[0]
	s.Equal(string(audit.EventThresholdsUpdated), event.Action)
	s.Equal(s.tenantID, event.TenantID)
	s.Equal("ops@example.com", event.ActorID)
	s.Equal("req-123", event.RequestID)
	s.Equal(now, event.Timestamp)
}

func (s *ServiceSuite) TestInvalidateForcesStoreReload() {
	ctx := context.Background()

	_, err := s.svc.Resolve(ctx, s.tenantID, false)
	s.Require().NoError(err)
	before := s.store.findCount()

	s.svc.Invalidate(ctx, s.tenantID)

	_, err = s.svc.Resolve(ctx, s.tenantID, false)
	s.Require().NoError(err)
	s.Equal(before+1, s.store.findCount())
}

type failingPublisher struct{}

func (failingPublisher) Emit(context.Context, audit.Event) error {
	return errors.New("outbox unavailable")
}

// The update is already persisted when the audit event is published, so a
// publish failure must not fail the call, but it must be logged with the
// event action.
func TestUpdateLogsAuditEmitFailure(t *testing.T) {
	var logs bytes.Buffer
	svc, err := New(thresholds.NewMemory(),
		WithAuditPublisher(failingPublisher{}),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), id.TenantID(uuid.New()), models.Update{
		AutoApproveThreshold: f(90),
	})
	require.NoError(t, err)
	require.Equal(t, 1, updated.Version)

	assert.Contains(t, logs.String(), "audit emit failed")
	assert.Contains(t, logs.String(), string(audit.EventThresholdsUpdated))
	assert.Contains(t, logs.String(), "outbox unavailable")
}

func TestResolveSandboxLeniency(t *testing.T) {
	svc, err := New(thresholds.NewMemory())
	require.NoError(t, err)
	tenantID := id.TenantID(uuid.New())

	prod, err := svc.Resolve(context.Background(), tenantID, false)
	require.NoError(t, err)
	sandbox, err := svc.Resolve(context.Background(), tenantID, true)
	require.NoError(t, err)

	assert.Less(t, sandbox.FaceMatch, prod.FaceMatch)
	assert.Less(t, sandbox.Liveness, prod.Liveness)
}
