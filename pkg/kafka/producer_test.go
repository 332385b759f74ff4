package kafka

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(context.Background(), &ProducerConfig{ClientID: "x"})
	assert.Error(t, err)
}

func TestNewProducer_UnreachableBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewProducer(ctx, &ProducerConfig{
		Brokers:  []string{"127.0.0.1:1"},
		ClientID: "test",
	})
	assert.Error(t, err)
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig()
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestProducer_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	brokers := "localhost:9092"
	if b := os.Getenv("TEST_KAFKA_BROKERS"); b != "" {
		brokers = b
	}

	ctx := context.Background()
	p, err := NewProducer(ctx, &ProducerConfig{Brokers: strings.Split(brokers, ","), ClientID: "test"})
	require.NoError(t, err)
	defer p.Close()

	err = p.ProduceJSON(ctx, "listing-events-test", "venue:v1", map[string]string{"type": "test"}, nil)
	assert.NoError(t, err)
}
