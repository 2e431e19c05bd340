// Package sync builds read snapshots of the complaint registry. A sync reads
// the registry count, then fetches the newest window of records one by one
// with bounded concurrency and normalises them for readers.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	gosync "sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	dErrors "civicledger/pkg/domain-errors"
)

const (
	DefaultConcurrency = 4
	DefaultMaxWindow   = 100
)

// Synchronizer is stateless apart from configuration and safe for
// concurrent use. It never writes to the source.
type Synchronizer struct {
	source      Source
	logger      *slog.Logger
	tracer      trace.Tracer
	concurrency int
	maxWindow   int
	decimals    TokenDecimals
	now         func() time.Time
}

type SynchronizerOption func(*Synchronizer)

func WithSyncLogger(logger *slog.Logger) SynchronizerOption {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

// WithConcurrency bounds in-flight record fetches.
func WithConcurrency(n int) SynchronizerOption {
	return func(s *Synchronizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMaxWindow clamps requested windows.
func WithMaxWindow(n int) SynchronizerOption {
	return func(s *Synchronizer) {
		if n > 0 {
			s.maxWindow = n
		}
	}
}

// WithTokenDecimals sets display exponents for stake tokens.
func WithTokenDecimals(d TokenDecimals) SynchronizerOption {
	return func(s *Synchronizer) {
		s.decimals = d
	}
}

func WithClock(now func() time.Time) SynchronizerOption {
	return func(s *Synchronizer) {
		s.now = now
	}
}

func NewSynchronizer(source Source, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		source:      source,
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.Tracer("civicledger/complaint/sync"),
		concurrency: DefaultConcurrency,
		maxWindow:   DefaultMaxWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync fetches the newest windowSize complaints. Records that fail to load
// are listed in FailedIDs; the sync fails only when the count cannot be read
// or every record in a non-empty window fails.
func (s *Synchronizer) Sync(ctx context.Context, windowSize int) (*Snapshot, error) {
	if windowSize <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "window size must be positive")
	}
	windowSize = min(windowSize, s.maxWindow)

	ctx, span := s.tracer.Start(ctx, "sync.window",
		trace.WithAttributes(attribute.Int("sync.window", windowSize)))
	defer span.End()

	count, err := s.source.Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return nil, unavailable("read complaint count", err)
	}
	span.SetAttributes(attribute.Int64("sync.count", int64(count)))

	if count == 0 {
		return &Snapshot{Records: []View{}, FailedIDs: []uint64{}, Window: windowSize, SyncedAt: s.now()}, nil
	}

	lo := uint64(0)
	if count > uint64(windowSize) {
		lo = count - uint64(windowSize)
	}

	var (
		mu      gosync.Mutex
		records = make([]View, 0, count-lo)
		failed  []uint64
	)

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for id := count - 1; ; id-- {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			raw, err := s.source.Fetch(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.WarnContext(ctx, "complaint fetch failed", "complaint_id", id, "error", err)
				failed = append(failed, id)
				return nil
			}
			raw.ID = id
			records = append(records, Normalize(raw, s.decimals.For))
			return nil
		})
		if id == lo {
			break
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return nil, unavailable("sync cancelled", err)
	}

	slices.SortFunc(records, func(a, b View) int { return compareDesc(a.ID, b.ID) })
	slices.SortFunc(failed, compareDesc)
	span.SetAttributes(attribute.Int("sync.failed", len(failed)))

	if len(records) == 0 {
		span.SetStatus(codes.Error, "every record failed")
		return nil, dErrors.New(dErrors.CodeSourceUnavailable,
			fmt.Sprintf("all %d records in window failed to load", len(failed)))
	}
	if failed == nil {
		failed = []uint64{}
	}

	return &Snapshot{
		Records:   records,
		FailedIDs: failed,
		Count:     count,
		Window:    windowSize,
		SyncedAt:  s.now(),
	}, nil
}

func compareDesc(a, b uint64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

func unavailable(msg string, err error) error {
	return dErrors.Wrap(err, dErrors.CodeSourceUnavailable, msg)
}

// ClampWindow applies the configured maximum window.
func (s *Synchronizer) ClampWindow(window int) int {
	return min(window, s.maxWindow)
}
