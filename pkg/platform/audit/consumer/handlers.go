package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "civicledger/pkg/platform/audit"
)

// ComplianceHandler retains settlement events. A settlement without an
// amount or recipient cannot be reconciled and is logged loudly, then
// skipped.
type ComplianceHandler struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewComplianceHandler(store audit.Store, logger *slog.Logger) *ComplianceHandler {
	return &ComplianceHandler{store: store, logger: logger, now: time.Now}
}

func (h *ComplianceHandler) Handle(ctx context.Context, p audit.Payload) error {
	if p.Amount == "" || p.Recipient == "" {
		h.logger.Error("CRITICAL: settlement event missing amount or recipient",
			"event_id", p.ID,
			"action", p.Action,
			"subject", p.Subject,
		)
		return nil
	}
	if err := h.store.Append(ctx, ToEvent(p, h.now)); err != nil {
		return fmt.Errorf("store compliance event: %w", err)
	}
	h.logger.Debug("stored compliance event",
		"event_id", p.ID,
		"action", p.Action,
		"recipient", p.Recipient,
	)
	return nil
}

// SecurityHandler records refused authority actions.
type SecurityHandler struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewSecurityHandler(store audit.Store, logger *slog.Logger) *SecurityHandler {
	return &SecurityHandler{store: store, logger: logger, now: time.Now}
}

func (h *SecurityHandler) Handle(ctx context.Context, p audit.Payload) error {
	h.logger.Warn("authority action denied",
		"event_id", p.ID,
		"actor", p.Actor,
		"subject", p.Subject,
		"reason", p.Reason,
		"client_ip", p.ClientIP,
	)
	if err := h.store.Append(ctx, ToEvent(p, h.now)); err != nil {
		return fmt.Errorf("store security event: %w", err)
	}
	return nil
}

// OpsHandler keeps routine events. Store failures are logged and dropped.
type OpsHandler struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewOpsHandler(store audit.Store, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{store: store, logger: logger, now: time.Now}
}

func (h *OpsHandler) Handle(ctx context.Context, p audit.Payload) error {
	if err := h.store.Append(ctx, ToEvent(p, h.now)); err != nil {
		h.logger.Warn("dropping operations event", "event_id", p.ID, "error", err)
	}
	return nil
}
