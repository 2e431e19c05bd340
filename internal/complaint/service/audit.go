package service

import (
	"context"

	"civicledger/pkg/platform/audit"
	"civicledger/pkg/requestcontext"
)

// emitAudit appends to the acknowledgement log. The ledger is authoritative,
// so failures are logged and swallowed.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.Device = requestcontext.Device(ctx)
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}

	s.logger.InfoContext(ctx, event.Action,
		"log_type", "audit",
		"request_id", event.RequestID,
		"complaint_id", event.Subject,
		"actor", event.Actor,
		"decision", event.Decision,
		"user_agent", requestcontext.UserAgent(ctx),
	)
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"request_id", event.RequestID,
			"action", event.Action,
			"error", err,
		)
	}
}
