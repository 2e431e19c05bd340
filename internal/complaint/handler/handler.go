// Package handler exposes the complaint registry over HTTP: the snapshot
// read API, reporter submission, and the authority admin API.
package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civicledger/internal/complaint/aggregate"
	"civicledger/internal/complaint/metrics"
	"civicledger/internal/complaint/models"
	"civicledger/internal/complaint/service"
	complaintsync "civicledger/internal/complaint/sync"
	"civicledger/pkg/domain"
)

// Registry is the write and direct-read surface of the complaint service.
type Registry interface {
	Submit(ctx context.Context, sub service.Submission) (domain.ComplaintID, error)
	Resolve(ctx context.Context, id domain.ComplaintID, caller domain.Address) (*models.Complaint, error)
	Reject(ctx context.Context, id domain.ComplaintID, caller domain.Address) (*models.Complaint, error)
	Advance(ctx context.Context, id domain.ComplaintID, caller domain.Address, to models.Status) (*models.Complaint, error)
	Get(ctx context.Context, id domain.ComplaintID) (*models.Complaint, error)
	ListByReporter(ctx context.Context, reporter domain.Address) ([]domain.ComplaintID, error)
}

// Snapshots serves synchronised windows.
type Snapshots interface {
	Snapshot(ctx context.Context, window int) (*complaintsync.Snapshot, error)
	Refresh(ctx context.Context, window int) (*complaintsync.Snapshot, error)
}

type Handler struct {
	registry      Registry
	snapshots     Snapshots
	logger        *slog.Logger
	metrics       *metrics.Metrics
	defaultWindow int
	defaultStake  *big.Int
	decimals      complaintsync.TokenDecimals

	requireCaller    func(http.Handler) http.Handler
	requireAuthority func(http.Handler) http.Handler
	limitSubmit      func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithDefaultWindow sets the window used when ?window is absent.
func WithDefaultWindow(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.defaultWindow = n
		}
	}
}

// WithDefaultStake is applied to submissions that omit stake_amount.
func WithDefaultStake(v *big.Int) Option {
	return func(h *Handler) {
		h.defaultStake = v
	}
}

// WithTokenDecimals formats single-complaint reads with the same exponents
// the synchronizer uses.
func WithTokenDecimals(d complaintsync.TokenDecimals) Option {
	return func(h *Handler) {
		h.decimals = d
	}
}

// WithSessionMiddleware guards reporter and admin routes.
func WithSessionMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.requireCaller = mw
	}
}

// WithAuthorityMiddleware guards admin routes that do not go through the
// service's own authority check.
func WithAuthorityMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.requireAuthority = mw
	}
}

// WithSubmitLimiter throttles POST /complaints per caller.
func WithSubmitLimiter(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.limitSubmit = mw
	}
}

func New(registry Registry, snapshots Snapshots, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Handler {
	h := &Handler{
		registry:         registry,
		snapshots:        snapshots,
		logger:           logger,
		metrics:          m,
		defaultWindow:    20,
		requireCaller:    passthrough,
		requireAuthority: passthrough,
		limitSubmit:      passthrough,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func passthrough(next http.Handler) http.Handler { return next }

// Register mounts every complaint route on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/complaints", h.HandleList)
	r.Get("/complaints/summary", h.HandleSummary)
	r.Get("/complaints/{id}", h.HandleGet)
	r.Get("/reporters/{address}/complaints", h.HandleListByReporter)

	r.With(h.requireCaller, h.limitSubmit).Post("/complaints", h.HandleSubmit)

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireCaller)
		r.Post("/complaints/{id}/resolve", h.HandleResolve)
		r.Post("/complaints/{id}/reject", h.HandleReject)
		r.Post("/complaints/{id}/status", h.HandleAdvance)
		r.With(h.requireAuthority).Post("/sync/refresh", h.HandleRefresh)
	})
}

func summarize(snap *complaintsync.Snapshot) aggregate.Summary {
	return aggregate.Summarize(snap.Records)
}
