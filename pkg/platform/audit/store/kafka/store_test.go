package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "civicledger/pkg/platform/audit"
)

type recordingPublisher struct {
	key   string
	value []byte
}

func (p *recordingPublisher) Publish(_ context.Context, key string, value []byte) error {
	p.key, p.value = key, value
	return nil
}

func TestAppendKeysByComplaint(t *testing.T) {
	pub := &recordingPublisher{}
	err := New(pub).Append(context.Background(), audit.Event{
		Subject:   "12",
		Action:    string(audit.EventComplaintRejected),
		Recipient: "0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
		Amount:    "100",
		Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "12", pub.key)

	var payload audit.Payload
	require.NoError(t, json.Unmarshal(pub.value, &payload))
	assert.Equal(t, "compliance", payload.Category)
	assert.Equal(t, "2026-03-01T00:00:00Z", payload.Timestamp)
	assert.Equal(t, "100", payload.Amount)
	assert.NotEmpty(t, payload.ID)
}

func TestAppendWithoutSubjectUsesEventID(t *testing.T) {
	pub := &recordingPublisher{}
	require.NoError(t, New(pub).Append(context.Background(), audit.Event{Action: string(audit.EventActionDenied)}))

	var payload audit.Payload
	require.NoError(t, json.Unmarshal(pub.value, &payload))
	assert.Equal(t, payload.ID, pub.key)
}
