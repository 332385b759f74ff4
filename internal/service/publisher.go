package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/wedding-market/internal/domain"
	"github.com/prohmpiriya/wedding-market/pkg/kafka"
	"github.com/prohmpiriya/wedding-market/pkg/logger"
	"github.com/prohmpiriya/wedding-market/pkg/retry"
)

// Producer is the subset of kafka.Producer used for publishing
type Producer interface {
	ProduceJSON(ctx context.Context, topic, key string, value any, headers map[string]string) error
}

var _ Producer = (*kafka.Producer)(nil)

// KafkaEventPublisher publishes listing events to a Kafka topic with retries
type KafkaEventPublisher struct {
	producer   Producer
	topic      string
	retry      *retry.Config
	deadLetter retry.DeadLetterPublisher
}

// NewKafkaEventPublisher creates a KafkaEventPublisher
func NewKafkaEventPublisher(producer Producer, topic string, retryCfg *retry.Config) *KafkaEventPublisher {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &KafkaEventPublisher{
		producer: producer,
		topic:    topic,
		retry:    retryCfg,
	}
}

// WithDeadLetter parks events that exhaust their retries
func (p *KafkaEventPublisher) WithDeadLetter(dlq retry.DeadLetterPublisher) *KafkaEventPublisher {
	p.deadLetter = dlq
	return p
}

// Publish produces the event as JSON, retrying transient failures
func (p *KafkaEventPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	headers := map[string]string{"content-type": "application/json"}
	if t := eventType(event); t != "" {
		headers["event-type"] = t
	}

	result := retry.Do(ctx, p.retry, func(ctx context.Context) error {
		return p.producer.ProduceJSON(ctx, p.topic, key, event, headers)
	})
	if result.Err == nil || p.deadLetter == nil {
		return result.Err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Join(result.Err, err)
	}
	dl := &retry.DeadLetter{
		OriginalTopic: p.topic,
		OriginalKey:   key,
		Payload:       payload,
		Headers:       headers,
		Error:         result.Err.Error(),
		Attempts:      result.Attempts,
	}
	// the caller's context may be what failed the retries
	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.deadLetter.PublishDeadLetter(dlqCtx, dl); err != nil {
		return errors.Join(result.Err, fmt.Errorf("dead letter: %w", err))
	}
	return result.Err
}

// LogEventPublisher logs events instead of publishing them; used when Kafka is disabled
type LogEventPublisher struct {
	log *logger.Logger
}

// NewLogEventPublisher creates a LogEventPublisher
func NewLogEventPublisher(log *logger.Logger) *LogEventPublisher {
	if log == nil {
		log = logger.Get()
	}
	return &LogEventPublisher{log: log}
}

// Publish logs the event at debug level
func (p *LogEventPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.log.WithContext(ctx).Debug("listing event",
		zap.String("key", key),
		zap.String("event_type", eventType(event)),
		zap.ByteString("payload", payload),
	)
	return nil
}

func eventType(event interface{}) string {
	switch e := event.(type) {
	case *domain.CalendarChangedEvent:
		return e.EventType
	case *domain.ListingModeratedEvent:
		return e.EventType
	}
	return ""
}
