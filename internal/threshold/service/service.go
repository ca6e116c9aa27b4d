// Package service resolves and manages per-tenant verification thresholds.
// Resolution sits on the hot path of every verification, so reads go through
// a TTL cache; updates invalidate before returning so a tenant never observes
// its own write being ignored.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idswyft/internal/threshold/cache"
	thresholdmetrics "idswyft/internal/threshold/metrics"
	"idswyft/internal/threshold/models"
	id "idswyft/pkg/domain"
	dErrors "idswyft/pkg/domain-errors"
	"idswyft/pkg/platform/audit"
	"idswyft/pkg/platform/sentinel"
	"idswyft/pkg/requestcontext"
)

// Store persists threshold sets. Save enforces optimistic concurrency via
// the version column and reports lost races as sentinel.ErrConflict.
type Store interface {
	Find(ctx context.Context, tenantID id.TenantID) (*models.ThresholdSet, error)
	Save(ctx context.Context, set *models.ThresholdSet) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the single entry point for threshold resolution and updates.
type Service struct {
	store Store
	cache *cache.Memory
	// shared is an optional cross-instance cache tier (Redis) consulted
	// after the in-process cache misses.
	shared         cache.Cache
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *thresholdmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *thresholdmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSharedCache installs a cross-instance cache tier. Lookups fall
// through memory, then shared, then the store.
func WithSharedCache(shared cache.Cache) Option {
	return func(s *Service) {
		s.shared = shared
	}
}

// WithCacheTTL overrides the default cache TTL. Mostly for tests.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache.NewMemory(ttl)
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("threshold service: store is required")
	}
	s := &Service{
		store:  store,
		cache:  cache.NewMemory(cache.DefaultTTL),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Resolve returns the effective thresholds for a tenant in the given mode.
// A tenant with no stored record resolves from system defaults; that is not
// an error and nothing is persisted on the read path.
func (s *Service) Resolve(ctx context.Context, tenantID id.TenantID, sandbox bool) (models.EffectiveThresholds, error) {
	start := time.Now()
	defer s.observeResolve(start)

	set, err := s.load(ctx, tenantID)
	if err != nil {
		return models.EffectiveThresholds{}, err
	}
	return models.Resolve(set, sandbox), nil
}

// Current returns the stored configuration for a tenant, falling back to
// system defaults when no record exists. Used by the admin read endpoint.
func (s *Service) Current(ctx context.Context, tenantID id.TenantID) (*models.ThresholdSet, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
	}
	return s.load(ctx, tenantID)
}

func (s *Service) load(ctx context.Context, tenantID id.TenantID) (*models.ThresholdSet, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
	}

	if set, ok := s.cache.Get(ctx, tenantID); ok {
		s.incrementCacheHit()
		return set, nil
	}
	s.incrementCacheMiss()

	// Snapshot the invalidation generation before the store read so a fill
	// computed from pre-update data cannot land after an invalidation.
	generation := s.cache.Generation(tenantID)

	if s.shared != nil {
		if set, ok := s.shared.Get(ctx, tenantID); ok {
			s.cache.SetIfCurrent(tenantID, set, generation)
			return set, nil
		}
	}

	set, err := s.store.Find(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			set = models.Defaults(tenantID)
			s.cache.SetIfCurrent(tenantID, set, generation)
			return set, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load thresholds")
	}
	s.cache.SetIfCurrent(tenantID, set, generation)
	if s.shared != nil {
		s.shared.Set(ctx, tenantID, set)
	}
	return set, nil
}

// Update applies a partial configuration change, validates the merged
// result, and persists it with a version bump. Retrying an identical update
// is a no-op: the stored set is returned unchanged with no version bump and
// no audit event.
func (s *Service) Update(ctx context.Context, tenantID id.TenantID, update models.Update) (*models.ThresholdSet, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
	}

	current, err := s.currentOrDefaults(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	next := current.Apply(update)
	if err := next.Validate(); err != nil {
		return nil, err
	}

	if current.Version > 0 && current.EquivalentTo(next) {
		return current, nil
	}

	next.Version = current.Version + 1
	next.UpdatedAt = requestcontext.Now(ctx)
	next.UpdatedBy = requestcontext.ActorID(ctx)

	if err := s.store.Save(ctx, next); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.incrementUpdateConflict()
			return nil, dErrors.New(dErrors.CodeConflict, "thresholds were updated concurrently, reload and retry")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save thresholds")
	}

	// Invalidate after the write lands so the next read observes it.
	s.cache.Invalidate(ctx, tenantID)
	if s.shared != nil {
		s.shared.Invalidate(ctx, tenantID)
	}
	s.incrementUpdate()

	s.logger.InfoContext(ctx, "tenant thresholds updated",
		"tenant_id", tenantID,
		"version", next.Version,
		"auto_approve", next.AutoApproveThreshold,
		"manual_review", next.ManualReviewThreshold,
		"require_liveness", next.RequireLiveness,
	)
	s.emitUpdated(ctx, next)

	return next, nil
}

// Invalidate drops any cached entry for a tenant. Exposed for operational
// tooling; normal updates invalidate automatically.
func (s *Service) Invalidate(ctx context.Context, tenantID id.TenantID) {
	s.cache.Invalidate(ctx, tenantID)
	if s.shared != nil {
		s.shared.Invalidate(ctx, tenantID)
	}
}

// currentOrDefaults loads directly from the store, bypassing the cache, so
// the read-modify-write cycle never builds on a stale entry.
func (s *Service) currentOrDefaults(ctx context.Context, tenantID id.TenantID) (*models.ThresholdSet, error) {
	current, err := s.store.Find(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Defaults(tenantID), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load thresholds")
	}
	return current, nil
}

func (s *Service) emitUpdated(ctx context.Context, set *models.ThresholdSet) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Timestamp: set.UpdatedAt,
		TenantID:  set.TenantID,
		Action:    string(audit.EventThresholdsUpdated),
		ActorID:   set.UpdatedBy,
		RequestID: requestcontext.RequestID(ctx),
	}
	// The update is already persisted; a publish failure must not undo it,
	// but it has to be visible to operators.
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"tenant_id", event.TenantID,
			"error", err,
		)
	}
}

func (s *Service) observeResolve(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveResolve(start)
	}
}

func (s *Service) incrementCacheHit() {
	if s.metrics != nil {
		s.metrics.IncrementCacheHit()
	}
}

func (s *Service) incrementCacheMiss() {
	if s.metrics != nil {
		s.metrics.IncrementCacheMiss()
	}
}

func (s *Service) incrementUpdate() {
	if s.metrics != nil {
		s.metrics.IncrementUpdate()
	}
}

func (s *Service) incrementUpdateConflict() {
	if s.metrics != nil {
		s.metrics.IncrementUpdateConflict()
	}
}
