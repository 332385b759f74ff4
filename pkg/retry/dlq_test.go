package retry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRecord struct {
	topic   string
	key     string
	value   any
	headers map[string]string
}

type captureProducer struct {
	records []capturedRecord
	err     error
}

func (p *captureProducer) ProduceJSON(_ context.Context, topic, key string, value any, headers map[string]string) error {
	p.records = append(p.records, capturedRecord{topic, key, value, headers})
	return p.err
}

func TestKafkaDeadLetterPublisher(t *testing.T) {
	producer := &captureProducer{}
	pub := NewKafkaDeadLetterPublisher(producer, "wedding-market")

	msg := &DeadLetter{
		OriginalTopic: "listing-events",
		OriginalKey:   "venue:V1",
		Payload:       json.RawMessage(`{"event_type":"listing.calendar.changed"}`),
		Headers:       map[string]string{"event-type": "listing.calendar.changed", "attempts": "x"},
		Error:         "broker down",
		Attempts:      4,
	}
	require.NoError(t, pub.PublishDeadLetter(context.Background(), msg))

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, "listing-events.dlq", rec.topic)
	assert.Equal(t, "venue:V1", rec.key)
	assert.Equal(t, "4", rec.headers["attempts"])
	assert.Equal(t, "listing.calendar.changed", rec.headers["original-event-type"])
	assert.Equal(t, "x", rec.headers["original-attempts"])
	assert.Equal(t, "wedding-market", msg.Source)
	assert.False(t, msg.FailedAt.IsZero())
}

func TestKafkaDeadLetterPublisher_Errors(t *testing.T) {
	pub := NewKafkaDeadLetterPublisher(&captureProducer{err: errors.New("down")}, "svc")

	assert.Error(t, pub.PublishDeadLetter(context.Background(), nil))
	assert.EqualError(t, pub.PublishDeadLetter(context.Background(), &DeadLetter{OriginalTopic: "t"}), "down")
}
