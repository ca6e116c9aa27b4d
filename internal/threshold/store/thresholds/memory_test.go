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
)

type MemoryStoreSuite struct {
	suite.Suite
	store *thresholds.MemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = thresholds.NewMemory()
}

func newStoredSet(tenantID id.TenantID, version int) *models.ThresholdSet {
	set := models.Defaults(tenantID)
	set.Version = version
	set.UpdatedAt = time.Now()
	return set
}

func (s *MemoryStoreSuite) TestFindMissingTenant() {
	_, err := s.store.Find(context.Background(), id.TenantID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())

	set := newStoredSet(tenantID, 1)
	set.AutoApproveThreshold = 92
	s.Require().NoError(s.store.Save(ctx, set))

	found, err := s.store.Find(ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(92.0, found.AutoApproveThreshold)
	s.Equal(1, found.Version)
}

func (s *MemoryStoreSuite) TestFindReturnsCopy() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	s.Require().NoError(s.store.Save(ctx, newStoredSet(tenantID, 1)))

	first, err := s.store.Find(ctx, tenantID)
	s.Require().NoError(err)
	first.AutoApproveThreshold = 10

	second, err := s.store.Find(ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(models.DefaultAutoApprove, second.AutoApproveThreshold)
}

func (s *MemoryStoreSuite) TestVersionGapRejected() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())

	s.ErrorIs(s.store.Save(ctx, newStoredSet(tenantID, 3)), sentinel.ErrConflict, "first write must be version 1")

	s.Require().NoError(s.store.Save(ctx, newStoredSet(tenantID, 1)))
	s.ErrorIs(s.store.Save(ctx, newStoredSet(tenantID, 1)), sentinel.ErrConflict, "replay of same version loses")
	s.ErrorIs(s.store.Save(ctx, newStoredSet(tenantID, 3)), sentinel.ErrConflict, "skipping a version loses")
	s.Require().NoError(s.store.Save(ctx, newStoredSet(tenantID, 2)))
}

func (s *MemoryStoreSuite) TestConcurrentSaveSameVersion() {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Save(ctx, newStoredSet(tenantID, 1)); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one writer should win version 1")
}
