// Package consumer routes audit payloads read back from the broker to
// category-specific handlers.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "civicledger/pkg/platform/audit"
)

// Message is one broker record.
type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

// Handler handles one decoded audit payload.
type Handler interface {
	Handle(ctx context.Context, payload audit.Payload) error
}

// Router dispatches messages by audit category.
type Router struct {
	handlers map[audit.EventCategory]Handler
	fallback Handler
	logger   *slog.Logger
}

// NewRouter creates a category router with an optional fallback handler.
func NewRouter(logger *slog.Logger, fallback Handler) *Router {
	return &Router{
		handlers: make(map[audit.EventCategory]Handler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds a handler for a category.
func (r *Router) Register(category audit.EventCategory, handler Handler) {
	r.handlers[category] = handler
}

// Handle decodes msg and routes it. Malformed messages are logged and
// skipped so they do not block the partition; only handler errors propagate.
func (r *Router) Handle(ctx context.Context, msg Message) error {
	var payload audit.Payload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		r.logger.Warn("skipping malformed audit payload",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}
	if _, err := uuid.Parse(payload.ID); err != nil {
		r.logger.Warn("skipping audit payload without a valid id",
			"topic", msg.Topic,
			"action", payload.Action,
		)
		return nil
	}

	category := audit.EventCategory(payload.Category)
	if category == "" {
		category = audit.AuditEvent(payload.Action).Category()
	}
	handler, ok := r.handlers[category]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Handle(ctx, payload)
		}
		r.logger.Warn("no handler for audit category, skipping message",
			"category", category,
			"key", string(msg.Key),
		)
		return nil
	}
	return handler.Handle(ctx, payload)
}

// ToEvent converts a payload back into an Event. An unparseable timestamp
// falls back to now.
func ToEvent(p audit.Payload, now func() time.Time) audit.Event {
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		ts = now()
	}
	return audit.Event{
		Category:  audit.EventCategory(p.Category),
		Timestamp: ts,
		Subject:   p.Subject,
		Action:    p.Action,
		Actor:     p.Actor,
		Decision:  p.Decision,
		Reason:    p.Reason,
		Amount:    p.Amount,
		Recipient: p.Recipient,
		RequestID: p.RequestID,
		ClientIP:  p.ClientIP,
		Device:    p.Device,
	}
}
