package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "civicledger/pkg/platform/audit"
	"civicledger/pkg/platform/audit/store/memory"
	"civicledger/pkg/testutil"
)

func message(t *testing.T, e audit.Event) Message {
	t.Helper()
	p := audit.NewPayload(e)
	return Message{Topic: "audit", Key: []byte(p.Subject), Value: []byte(testutil.MustMarshal(t, p))}
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("disk full") }

func newRouter(compliance, security, ops audit.Store) *Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(logger, nil)
	r.Register(audit.CategoryCompliance, NewComplianceHandler(compliance, logger))
	r.Register(audit.CategorySecurity, NewSecurityHandler(security, logger))
	r.Register(audit.CategoryOperations, NewOpsHandler(ops, logger))
	return r
}

func TestRouterDispatchesByCategory(t *testing.T) {
	ctx := context.Background()
	compliance, security, ops := memory.NewInMemoryStore(), memory.NewInMemoryStore(), memory.NewInMemoryStore()
	r := newRouter(compliance, security, ops)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Handle(ctx, message(t, audit.Event{
		Subject: "3", Action: string(audit.EventComplaintResolved), Timestamp: at,
		Amount: "100", Recipient: "0xabc",
	})))
	require.NoError(t, r.Handle(ctx, message(t, audit.Event{
		Subject: "3", Action: string(audit.EventActionDenied), Timestamp: at, Actor: "0xdef",
	})))
	require.NoError(t, r.Handle(ctx, message(t, audit.Event{
		Subject: "4", Action: string(audit.EventComplaintSubmitted), Timestamp: at,
	})))

	got, _ := compliance.ListBySubject(ctx, "3")
	require.Len(t, got, 1)
	assert.Equal(t, "100", got[0].Amount)
	assert.True(t, at.Equal(got[0].Timestamp))

	got, _ = security.ListBySubject(ctx, "3")
	require.Len(t, got, 1)
	assert.Equal(t, "0xdef", got[0].Actor)

	got, _ = ops.ListBySubject(ctx, "4")
	assert.Len(t, got, 1)
}

func TestRouterSkipsBadInput(t *testing.T) {
	ctx := context.Background()
	compliance := memory.NewInMemoryStore()
	r := newRouter(compliance, memory.NewInMemoryStore(), memory.NewInMemoryStore())

	assert.NoError(t, r.Handle(ctx, Message{Value: []byte("{")}), "malformed json")
	assert.NoError(t, r.Handle(ctx, Message{Value: []byte(`{"id":"nope","action":"complaint_resolved"}`)}), "bad id")
	assert.NoError(t, r.Handle(ctx, message(t, audit.Event{
		Subject: "1", Action: string(audit.EventComplaintRejected),
	})), "settlement without amount")

	got, _ := compliance.ListRecent(ctx, 10)
	assert.Empty(t, got)
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	r := newRouter(failingStore{}, failingStore{}, failingStore{})

	err := r.Handle(ctx, message(t, audit.Event{
		Subject: "1", Action: string(audit.EventComplaintResolved), Amount: "1", Recipient: "0x1",
	}))
	assert.Error(t, err, "compliance failures are redelivered")

	err = r.Handle(ctx, message(t, audit.Event{Subject: "1", Action: string(audit.EventComplaintAdvanced)}))
	assert.NoError(t, err, "operations failures are dropped")
}

func TestUnroutedCategoryUsesFallback(t *testing.T) {
	ctx := context.Background()
	fallback := memory.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(logger, NewOpsHandler(fallback, logger))

	require.NoError(t, r.Handle(ctx, message(t, audit.Event{Subject: "9", Action: string(audit.EventActionDenied)})))
	got, _ := fallback.ListBySubject(ctx, "9")
	assert.Len(t, got, 1)
}
