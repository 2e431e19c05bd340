package sync

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	dErrors "civicledger/pkg/domain-errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource serves n records with deterministic content; ids in fail error.
type fakeSource struct {
	n    uint64
	fail map[uint64]bool
}

func (f fakeSource) Count(context.Context) (uint64, error) { return f.n, nil }

func (f fakeSource) Fetch(_ context.Context, id uint64) (RawRecord, error) {
	if f.fail[id] {
		return RawRecord{}, errors.New("rpc timeout")
	}
	return RawRecord{
		Reporter:    "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		Description: "complaint",
		Location:    "0,0",
		StakeAmount: big.NewInt(100000000000000000),
		Status:      int64(id % 5),
		Urgency:     int64(id % 4),
		Category:    "Road infrastructure",
		Timestamp:   1700000000 + int64(id),
	}, nil
}

func ids(snap *Snapshot) []uint64 {
	out := make([]uint64, len(snap.Records))
	for i, r := range snap.Records {
		out[i] = r.ID
	}
	return out
}

func TestSyncWindowNewestFirst(t *testing.T) {
	s := NewSynchronizer(fakeSource{n: 25}, WithConcurrency(3))

	snap, err := s.Sync(context.Background(), 20)
	require.NoError(t, err)

	want := make([]uint64, 0, 20)
	for id := uint64(24); id >= 5; id-- {
		want = append(want, id)
	}
	if diff := cmp.Diff(want, ids(snap)); diff != "" {
		t.Errorf("window ids mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, snap.FailedIDs)
	assert.Equal(t, uint64(25), snap.Count)
}

func TestSyncNormalisesRecords(t *testing.T) {
	s := NewSynchronizer(fakeSource{n: 8})
	snap, err := s.Sync(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)

	want := View{
		ID:           7,
		Reporter:     "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		Description:  "complaint",
		Location:     "0,0",
		StakedAmount: "0.1",
		Status:       "InProgress",
		Urgency:      "Critical",
		Category:     "Road infrastructure",
		Timestamp:    1700000007000,
	}
	if diff := cmp.Diff(want, snap.Records[0]); diff != "" {
		t.Errorf("view mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncUsesConfiguredTokenDecimals(t *testing.T) {
	s := NewSynchronizer(fakeSource{n: 1}, WithTokenDecimals(TokenDecimals{"": 6}))
	snap, err := s.Sync(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "100000000000.0", snap.Records[0].StakedAmount)
}

func TestSyncSmallRegistry(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	clock := WithClock(func() time.Time { return at })

	s := NewSynchronizer(fakeSource{n: 3}, clock)
	snap, err := s.Sync(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 1, 0}, ids(snap))
	assert.Equal(t, at, snap.SyncedAt)

	empty, err := NewSynchronizer(fakeSource{n: 0}, clock).Sync(context.Background(), 20)
	require.NoError(t, err)
	assert.Empty(t, empty.Records)
	assert.Equal(t, at, empty.SyncedAt)
}

func TestSyncClampsAndRejectsWindow(t *testing.T) {
	s := NewSynchronizer(fakeSource{n: 300}, WithMaxWindow(100))
	snap, err := s.Sync(context.Background(), 500)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 100)
	assert.Equal(t, 100, snap.Window)

	for _, w := range []int{0, -3} {
		_, err := s.Sync(context.Background(), w)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func TestSyncAbsorbsPartialFailures(t *testing.T) {
	s := NewSynchronizer(fakeSource{n: 10, fail: map[uint64]bool{8: true, 3: true}})
	snap, err := s.Sync(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{8, 3}, snap.FailedIDs)
	assert.Len(t, snap.Records, 8)
	assert.Equal(t, uint64(9), snap.Records[0].ID)
}

func TestSyncHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := blockingSource{n: 50, release: ctx.Done()}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := NewSynchronizer(src, WithConcurrency(2)).Sync(ctx, 50)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSourceUnavailable))
}

type blockingSource struct {
	n       uint64
	release <-chan struct{}
}

func (b blockingSource) Count(context.Context) (uint64, error) { return b.n, nil }

func (b blockingSource) Fetch(ctx context.Context, _ uint64) (RawRecord, error) {
	<-b.release
	return RawRecord{}, ctx.Err()
}
