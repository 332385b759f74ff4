package retry

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// DeadLetter is a message that could not be delivered after all retries
type DeadLetter struct {
	OriginalTopic string            `json:"original_topic"`
	OriginalKey   string            `json:"original_key"`
	Payload       json.RawMessage   `json:"payload"`
	Headers       map[string]string `json:"headers,omitempty"`
	Error         string            `json:"error"`
	Attempts      int               `json:"attempts"`
	FailedAt      time.Time         `json:"failed_at"`
	// Source is the service that gave up on the message
	Source string `json:"source"`
}

// DeadLetterPublisher parks undeliverable messages
type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, msg *DeadLetter) error
}

// JSONProducer is the subset of the Kafka producer needed for dead letters
type JSONProducer interface {
	ProduceJSON(ctx context.Context, topic, key string, value any, headers map[string]string) error
}

// DefaultDeadLetterSuffix is appended to the original topic name
const DefaultDeadLetterSuffix = ".dlq"

// KafkaDeadLetterPublisher writes dead letters to "<topic>.dlq"
type KafkaDeadLetterPublisher struct {
	producer JSONProducer
	suffix   string
	source   string
}

// NewKafkaDeadLetterPublisher creates a KafkaDeadLetterPublisher
func NewKafkaDeadLetterPublisher(producer JSONProducer, source string) *KafkaDeadLetterPublisher {
	return &KafkaDeadLetterPublisher{
		producer: producer,
		suffix:   DefaultDeadLetterSuffix,
		source:   source,
	}
}

// Topic returns the dead letter topic for originalTopic
func (p *KafkaDeadLetterPublisher) Topic(originalTopic string) string {
	return originalTopic + p.suffix
}

// PublishDeadLetter produces msg once; it is not retried
func (p *KafkaDeadLetterPublisher) PublishDeadLetter(ctx context.Context, msg *DeadLetter) error {
	if msg == nil {
		return errors.New("dead letter cannot be nil")
	}
	if msg.FailedAt.IsZero() {
		msg.FailedAt = time.Now().UTC()
	}
	msg.Source = p.source

	headers := map[string]string{
		"content-type":   "application/json",
		"original-topic": msg.OriginalTopic,
		"attempts":       strconv.Itoa(msg.Attempts),
		"source":         msg.Source,
	}
	for k, v := range msg.Headers {
		headers["original-"+k] = v
	}

	return p.producer.ProduceJSON(ctx, p.Topic(msg.OriginalTopic), msg.OriginalKey, msg, headers)
}
