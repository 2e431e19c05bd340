// Package kafka publishes audit events straight to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	audit "civicledger/pkg/platform/audit"
)

// Publisher is the slice of the kafka producer the sink needs.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Store implements audit.Store by producing one record per event, keyed by
// complaint id so a complaint's history stays in one partition.
type Store struct {
	producer Publisher
}

func New(p Publisher) *Store {
	return &Store{producer: p}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload := audit.NewPayload(event)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	key := event.Subject
	if key == "" {
		key = payload.ID
	}
	return s.producer.Publish(ctx, key, body)
}
