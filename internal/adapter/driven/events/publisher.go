// Package events publishes authentication lifecycle events on a watermill
// topic and turns them into operator notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// DefaultTopic is the topic AuthEvents are published on.
const DefaultTopic = "bankster.auth"

// Compile-time interface satisfaction check.
var _ driven.AuthEventPublisher = (*Publisher)(nil)

// Publisher implements the AuthEventPublisher port on a watermill publisher.
type Publisher struct {
	publisher message.Publisher
	topic     string
}

// NewPublisher creates a Publisher. An empty topic uses DefaultTopic.
func NewPublisher(publisher message.Publisher, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{publisher: publisher, topic: topic}
}

// Publish sends the event as JSON. The kind and account are copied into the
// message metadata for routing.
func (p *Publisher) Publish(ctx context.Context, event model.AuthEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("kind", string(event.Kind))
	msg.Metadata.Set("account", event.Account)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}
