package mq_test

import (
	"context"
	"testing"

	"streamjudge/internal/common/mq"
)

func TestNewKafkaProducerRequiresBrokers(t *testing.T) {
	t.Parallel()
	if _, err := mq.NewKafkaProducer(mq.KafkaConfig{}); err == nil {
		t.Fatalf("expected error for empty brokers")
	}
}

func TestPublishValidatesArguments(t *testing.T) {
	t.Parallel()
	producer, err := mq.NewKafkaProducer(mq.KafkaConfig{Brokers: []string{"127.0.0.1:9092"}})
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer producer.Close()

	if err := producer.Publish(context.Background(), "topic", nil); err == nil {
		t.Fatalf("expected error for nil message")
	}
	if err := producer.Publish(context.Background(), "", mq.NewMessage([]byte("x"))); err == nil {
		t.Fatalf("expected error for empty topic")
	}
}

func TestPublishBatchEmptyIsNoop(t *testing.T) {
	t.Parallel()
	producer, err := mq.NewKafkaProducer(mq.KafkaConfig{Brokers: []string{"127.0.0.1:9092"}})
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer producer.Close()

	if err := producer.PublishBatch(context.Background(), "topic", nil); err != nil {
		t.Fatalf("expected empty batch to be a no-op, got %v", err)
	}
}

func TestMessageHeaders(t *testing.T) {
	t.Parallel()
	msg := mq.NewMessage([]byte("payload"))
	msg.SetHeader("kind", "run.final")

	if got, ok := msg.GetHeader("kind"); !ok || got != "run.final" {
		t.Fatalf("expected header round trip, got %q ok=%v", got, ok)
	}
	if _, ok := msg.GetHeader("absent"); ok {
		t.Fatalf("expected missing header to report false")
	}
	if msg.Timestamp.IsZero() {
		t.Fatalf("expected message timestamp to be set")
	}
}
