package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerTopicFor(t *testing.T) {
	w := &Worker{}
	assert.Equal(t, "payment.events.v1", w.topicFor("payment.hold_placed"))
	assert.Equal(t, "payment.events.v1", w.topicFor("payment.captured"))
	assert.Equal(t, "session.events.v1", w.topicFor("session.ended"))

	w.TopicPrefix = "staging."
	assert.Equal(t, "staging.payment.events.v1", w.topicFor("payment.failed"))
}

func TestWorkerFormatsCloudEvents(t *testing.T) {
	w := &Worker{Source: "app://voltpay-test"}
	occurred := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	doc := &EventDocument{
		ID:         "evt-1",
		Name:       "payment.hold_placed",
		Payload:    []byte(`{"SessionID":"sess-1","HoldAmountCents":5000}`),
		OccurredAt: occurred,
		Aggregate:  "sess-1",
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}

	payload, headers, err := w.formatPayload(doc)
	require.NoError(t, err)
	assert.Equal(t, "application/cloudevents+json", headers["content-type"])
	assert.Equal(t, "00-abc-def-01", headers["traceparent"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "payment.hold_placed.v1", evt["type"])
	assert.Equal(t, "app://voltpay-test", evt["source"])
	assert.Equal(t, "00-abc-def-01", evt["traceparent"], "trace context is promoted into the envelope")
	data, ok := evt["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5000), data["HoldAmountCents"])
}

func TestWorkerFormatRejectsBadPayload(t *testing.T) {
	w := &Worker{}
	_, _, err := w.formatPayload(&EventDocument{Payload: []byte("not json")})
	assert.Error(t, err)
}

func TestWorkerBackoffSchedule(t *testing.T) {
	w := &Worker{Backoff: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}}
	before := time.Now()

	assert.WithinDuration(t, before.Add(time.Second), w.nextRetry(0), time.Second)
	assert.WithinDuration(t, before.Add(5*time.Second), w.nextRetry(1), time.Second)
	assert.WithinDuration(t, before.Add(30*time.Second), w.nextRetry(2), time.Second)
	// past the schedule the last step repeats
	assert.WithinDuration(t, before.Add(30*time.Second), w.nextRetry(7), time.Second)
}
