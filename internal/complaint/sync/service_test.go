package sync

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"civicledger/internal/complaint/metrics"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/circuit"
)

// switchableSource counts calls and can be taken offline.
type switchableSource struct {
	n       atomic.Uint64
	down    atomic.Bool
	counts  atomic.Int32
	fetches atomic.Int32
	gate    chan struct{}
}

// Count reads the registry size before waiting on gate, so a gated call
// returns the size as it was when the sync began.
func (s *switchableSource) Count(context.Context) (uint64, error) {
	n := s.n.Load()
	s.counts.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.down.Load() {
		return 0, errors.New("registry offline")
	}
	return n, nil
}

func (s *switchableSource) Fetch(ctx context.Context, id uint64) (RawRecord, error) {
	s.fetches.Add(1)
	return fakeSource{n: s.n.Load()}.Fetch(ctx, id)
}

type SnapshotServiceSuite struct {
	suite.Suite
	ctx     context.Context
	source  *switchableSource
	metrics *metrics.Metrics
	service *Service
}

func TestSnapshotServiceSuite(t *testing.T) {
	suite.Run(t, new(SnapshotServiceSuite))
}

func (s *SnapshotServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.source = &switchableSource{}
	s.source.n.Store(12)
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.service = NewService(NewSynchronizer(s.source),
		WithMetrics(s.metrics),
		WithCacheTTL(time.Minute),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))),
	)
}

func (s *SnapshotServiceSuite) TestFreshThenCached() {
	first, err := s.service.Snapshot(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal(SourceRegistry, first.Source)
	s.False(first.Stale)

	second, err := s.service.Snapshot(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal(SourceCache, second.Source)
	s.Equal(first.Records, second.Records)
	s.Equal(int32(1), s.source.counts.Load())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SnapshotServed.WithLabelValues(SourceCache)))
}

func (s *SnapshotServiceSuite) TestInvalidateForcesResync() {
	_, err := s.service.Snapshot(s.ctx, 5)
	s.Require().NoError(err)

	s.source.n.Store(13)
	s.Require().NoError(s.service.Invalidate(s.ctx))

	snap, err := s.service.Snapshot(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal(SourceRegistry, snap.Source)
	s.Equal(uint64(12), snap.Records[0].ID)
}

func (s *SnapshotServiceSuite) TestInvalidateIsNotUndoneByInFlightSync() {
	s.source.gate = make(chan struct{})
	before := make(chan *Snapshot, 1)
	go func() {
		snap, _ := s.service.Snapshot(s.ctx, 5)
		before <- snap
	}()
	s.Eventually(func() bool { return s.source.counts.Load() == 1 }, time.Second, time.Millisecond)

	s.source.n.Store(13)
	s.Require().NoError(s.service.Invalidate(s.ctx))

	after := make(chan *Snapshot, 1)
	go func() {
		snap, _ := s.service.Snapshot(s.ctx, 5)
		after <- snap
	}()
	s.Eventually(func() bool { return s.source.counts.Load() == 2 }, time.Second, time.Millisecond,
		"a request after the write must start its own sync")
	close(s.source.gate)

	old := <-before
	s.Require().NotNil(old)
	s.Equal(uint64(11), old.Records[0].ID)

	fresh := <-after
	s.Require().NotNil(fresh)
	s.Equal(uint64(12), fresh.Records[0].ID)

	cached, err := s.service.Snapshot(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal(SourceCache, cached.Source)
	s.Equal(uint64(12), cached.Records[0].ID)
	s.Equal(int32(2), s.source.counts.Load())
}

func (s *SnapshotServiceSuite) TestConcurrentRequestsShareOneSync() {
	s.source.gate = make(chan struct{})
	var wg gosync.WaitGroup
	results := make([]*Snapshot, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = s.service.Snapshot(s.ctx, 4)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(s.source.gate)
	wg.Wait()

	s.Equal(int32(1), s.source.counts.Load())
	for _, r := range results {
		s.Require().NotNil(r)
		s.Len(r.Records, 4)
	}
}

func (s *SnapshotServiceSuite) TestStaleFallbackAndDegraded() {
	good, err := s.service.Refresh(s.ctx, 5)
	s.Require().NoError(err)

	s.source.down.Store(true)

	stale, err := s.service.Refresh(s.ctx, 5)
	s.Require().NoError(err)
	s.True(stale.Stale)
	s.Equal(SourceStale, stale.Source)
	s.Equal(good.Records, stale.Records)
	s.False(stale.Degraded, "one failure does not open the breaker")

	stale, err = s.service.Refresh(s.ctx, 5)
	s.Require().NoError(err)
	s.True(stale.Degraded)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.BreakerOpen))

	s.source.down.Store(false)
	fresh, err := s.service.Refresh(s.ctx, 5)
	s.Require().NoError(err)
	s.False(fresh.Stale)
	s.False(fresh.Degraded)
	s.Equal(0.0, testutil.ToFloat64(s.metrics.BreakerOpen))
}

func (s *SnapshotServiceSuite) TestUnavailableWithoutLastGood() {
	s.source.down.Store(true)
	_, err := s.service.Snapshot(s.ctx, 5)
	s.True(dErrors.HasCode(err, dErrors.CodeSourceUnavailable))
}

func (s *SnapshotServiceSuite) TestInvalidWindow() {
	_, err := s.service.Snapshot(s.ctx, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	_, err = s.service.Refresh(s.ctx, -1)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *SnapshotServiceSuite) TestRunRefreshesUntilCancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() {
		done <- s.service.Run(ctx, 10*time.Millisecond, 3)
	}()

	s.Eventually(func() bool { return s.source.counts.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	s.ErrorIs(<-done, context.Canceled)
}

func (s *SnapshotServiceSuite) TestCallerCancellationDoesNotAbortSharedSync() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	snap, err := s.service.Snapshot(ctx, 2)
	s.Require().NoError(err)
	s.Len(snap.Records, 2)
}
