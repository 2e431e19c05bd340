package worker

import (
	"context"
	"log/slog"
	"time"

	"civicledger/pkg/platform/audit/store/postgres"
)

// Outbox is the relay's view of the postgres outbox.
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]postgres.Entry, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}

// Sink receives relayed rows.
type Sink interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Relay moves unpublished outbox rows to a sink on a fixed interval.
type Relay struct {
	outbox   Outbox
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

func NewRelay(outbox Outbox, sink Sink, logger *slog.Logger, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{outbox: outbox, sink: sink, logger: logger, interval: interval, batch: 100}
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Once(ctx); err != nil {
				r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// Once relays a single batch and returns how many rows were published.
// Rows after the first failed publish stay pending for the next round.
func (r *Relay) Once(ctx context.Context) (int, error) {
	entries, err := r.outbox.Pending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	published := make([]string, 0, len(entries))
	var publishErr error
	for _, e := range entries {
		if err := r.sink.Publish(ctx, e.AggregateID, e.Payload); err != nil {
			publishErr = err
			break
		}
		published = append(published, e.ID)
	}
	if err := r.outbox.MarkPublished(ctx, published, time.Now().UTC()); err != nil {
		return 0, err
	}
	return len(published), publishErr
}
