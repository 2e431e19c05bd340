package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory routes audit events to retention tiers.
type EventCategory string

const (
	// CategoryCompliance covers stake settlements, which move funds.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers refused authority actions.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine bookkeeping.
	CategoryOperations EventCategory = "operations"
)

// Event is the acknowledgement-log entry written after a registry
// operation. It is non-authoritative: the ledger remains the source of truth.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the complaint id, or empty when no complaint was created.
	Subject  string
	Action   string
	Actor    string
	Decision string
	Reason   string
	// Amount and Recipient are set on settlement events.
	Amount    string
	Recipient string
	RequestID string
	ClientIP  string
	Device    string
}

type AuditEvent string

const (
	EventComplaintSubmitted AuditEvent = "complaint_submitted"
	EventComplaintAdvanced  AuditEvent = "complaint_advanced"
	EventComplaintResolved  AuditEvent = "complaint_resolved"
	EventComplaintRejected  AuditEvent = "complaint_rejected"
	EventActionDenied       AuditEvent = "complaint_action_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventComplaintResolved:  CategoryCompliance,
	EventComplaintRejected:  CategoryCompliance,
	EventActionDenied:       CategorySecurity,
	EventComplaintSubmitted: CategoryOperations,
	EventComplaintAdvanced:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Payload is the JSON form of an Event used by the outbox and Kafka sinks.
type Payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Subject   string `json:"subject,omitempty"`
	Action    string `json:"action"`
	Actor     string `json:"actor,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Device    string `json:"device,omitempty"`
}

// NewPayload converts an event into its wire form with a fresh id.
func NewPayload(event Event) Payload {
	category := event.Category
	if category == "" {
		category = AuditEvent(event.Action).Category()
	}
	return Payload{
		ID:        uuid.NewString(),
		Category:  string(category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Action:    event.Action,
		Actor:     event.Actor,
		Decision:  event.Decision,
		Reason:    event.Reason,
		Amount:    event.Amount,
		Recipient: event.Recipient,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		Device:    event.Device,
	}
}
