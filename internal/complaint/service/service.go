// Package service implements the complaint registry operations on top of a
// ledger store: submission, the authority-gated lifecycle, and reads.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"civicledger/internal/classifier"
	"civicledger/internal/complaint/authority"
	"civicledger/internal/complaint/metrics"
	"civicledger/internal/complaint/models"
	"civicledger/pkg/domain"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/audit"
	"civicledger/pkg/platform/sentinel"
)

// Store is the ledger port. Implementations serialise mutations per
// complaint and record settlements atomically with terminal transitions.
type Store interface {
	Create(ctx context.Context, draft models.Draft, now time.Time) (*models.Complaint, error)
	FindByID(ctx context.Context, id domain.ComplaintID) (*models.Complaint, error)
	Count(ctx context.Context) (uint64, error)
	ListSince(ctx context.Context, cursor domain.ComplaintID, limit int) ([]*models.Complaint, error)
	ListByReporter(ctx context.Context, reporter domain.Address) ([]domain.ComplaintID, error)
	Execute(ctx context.Context, id domain.ComplaintID,
		validate func(*models.Complaint) error,
		mutate func(*models.Complaint) *models.Settlement,
	) (*models.Complaint, *models.Settlement, error)
	Settlement(ctx context.Context, id domain.ComplaintID) (*models.Settlement, error)
	Credited(ctx context.Context, holder, token domain.Address) (*big.Int, error)
	Custody(ctx context.Context, token domain.Address) (*big.Int, error)
}

type Classifier interface {
	Classify(description string) classifier.Result
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// SnapshotInvalidator is told after every successful write so cached read
// snapshots are refreshed on the next request.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service orchestrates registry writes and reads.
type Service struct {
	store       Store
	authorities authority.Authorizer
	classifier  Classifier
	slashSink   domain.Address
	logger      *slog.Logger
	metrics     *metrics.Metrics
	audit       AuditPublisher
	invalidator SnapshotInvalidator
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

func WithSnapshotInvalidator(inv SnapshotInvalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

// WithClassifier overrides the default keyword classifier used to fill in
// category and urgency when a submission omits them.
func WithClassifier(c Classifier) Option {
	return func(s *Service) {
		s.classifier = c
	}
}

// WithSlashSink sets the recipient of rejected stakes.
func WithSlashSink(sink domain.Address) Option {
	return func(s *Service) {
		s.slashSink = sink
	}
}

func New(store Store, authorities authority.Authorizer, opts ...Option) *Service {
	s := &Service{
		store:       store,
		authorities: authorities,
		classifier:  classifier.New(),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// translate maps store sentinels onto the registry error taxonomy. Errors
// that already carry a domain code pass through unchanged.
func translate(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidTransition, "complaint is already settled")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeSourceUnavailable, "registry is unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "registry call timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry operation failed")
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "snapshot invalidation failed", "error", err)
	}
}
