package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"streamjudge/internal/common/mq"
	"streamjudge/internal/judge/model"
	appErr "streamjudge/pkg/errors"
)

// RunEventPublisher publishes run summaries for async processing.
type RunEventPublisher interface {
	PublishRunSummary(ctx context.Context, summary model.RunSummary) error
}

// MQRunEventPublisher publishes run summaries to a message queue.
type MQRunEventPublisher struct {
	queue mq.Producer
	topic string
}

// NewMQRunEventPublisher creates a new MQ run event publisher.
func NewMQRunEventPublisher(queue mq.Producer, topic string) *MQRunEventPublisher {
	return &MQRunEventPublisher{queue: queue, topic: topic}
}

// PublishRunSummary publishes a final run summary event.
func (p *MQRunEventPublisher) PublishRunSummary(ctx context.Context, summary model.RunSummary) error {
	if p == nil || p.queue == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("run event publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("run event topic is required")
	}
	if summary.RunID == "" {
		return appErr.ValidationError("run_id", "required")
	}
	event := model.RunSummaryEvent{
		Type:      model.RunSummaryEventFinal,
		Summary:   summary,
		CreatedAt: time.Now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal run summary event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	message.ID = summary.RunID
	if err := p.queue.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "publish run summary event failed")
	}
	return nil
}
