//go:build integration

package thresholds_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"idswyft/internal/threshold/models"
	"idswyft/internal/threshold/store/thresholds"
	id "idswyft/pkg/domain"
	"idswyft/pkg/platform/sentinel"
	"idswyft/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *thresholds.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = thresholds.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "tenant_thresholds")
	s.Require().NoError(err)
}

func storedSet(tenantID id.TenantID, version int) *models.ThresholdSet {
	set := models.Defaults(tenantID)
	set.Version = version
	set.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	set.UpdatedBy = "test-admin"
	return set
}

func (s *PostgresStoreSuite) TestFindMissingTenant() {
	_, err := s.store.Find(context.Background(), id.TenantID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRoundTripWithOverrides() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())

	faceMatch := 0.92
	set := storedSet(tenantID, 1)
	set.Overrides.FaceMatchProduction = &faceMatch
	set.RequireBackOfID = true
	s.Require().NoError(s.store.Save(ctx, set))

	found, err := s.store.Find(ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(tenantID, found.TenantID)
	s.Equal(1, found.Version)
	s.True(found.RequireBackOfID)
	s.Require().NotNil(found.Overrides.FaceMatchProduction)
	s.Equal(0.92, *found.Overrides.FaceMatchProduction)
	s.Nil(found.Overrides.LivenessProduction)
	s.Equal("test-admin", found.UpdatedBy)
}

func (s *PostgresStoreSuite) TestOptimisticConcurrency() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())

	s.Require().NoError(s.store.Save(ctx, storedSet(tenantID, 1)))

	s.ErrorIs(s.store.Save(ctx, storedSet(tenantID, 1)), sentinel.ErrConflict)
	s.ErrorIs(s.store.Save(ctx, storedSet(tenantID, 3)), sentinel.ErrConflict)
	s.Require().NoError(s.store.Save(ctx, storedSet(tenantID, 2)))
}

func (s *PostgresStoreSuite) TestConcurrentUpdatesExactlyOneWinner() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	s.Require().NoError(s.store.Save(ctx, storedSet(tenantID, 1)))

	const goroutines = 30
	var wg sync.WaitGroup
	var successCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			set := storedSet(tenantID, 2)
			set.AutoApproveThreshold = 70 + float64(idx%25)
			if err := s.store.Save(ctx, set); err == nil {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one writer should advance to version 2")

	found, err := s.store.Find(ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(2, found.Version)
}
