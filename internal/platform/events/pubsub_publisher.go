// Package events publishes committed status saves to Cloud Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"finitefield.org/statusboard/internal/dashboard"
)

// EventTypeStatusSaved is the eventType attribute of save messages.
const EventTypeStatusSaved = "status.saved"

// PubSubPublisher publishes dashboard.SavedEvent messages to a topic.
type PubSubPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ dashboard.Notifier = (*PubSubPublisher)(nil)

// NewPubSubPublisher constructs a publisher for topic.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub publisher: topic is required")
	}
	return &PubSubPublisher{topic: topic, marshal: json.Marshal}, nil
}

// StatusSaved publishes event and waits for the server id.
func (p *PubSubPublisher) StatusSaved(ctx context.Context, event dashboard.SavedEvent) error {
	_, err := p.Publish(ctx, event)
	return err
}

// Publish publishes event and returns the server-assigned message id.
func (p *PubSubPublisher) Publish(ctx context.Context, event dashboard.SavedEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub publisher: not initialised")
	}
	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal saved event: %w", err)
	}

	attrs := map[string]string{"eventType": EventTypeStatusSaved}
	if id := strings.TrimSpace(event.SaveID); id != "" {
		attrs["saveId"] = id
	}

	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish saved event: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *PubSubPublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}
