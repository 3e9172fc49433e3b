package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// DefaultTopic receives one message per verification attempt
const DefaultTopic = "walletauth.verification"

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher. An empty topic uses DefaultTopic.
func NewWatermillPublisher(publisher message.Publisher, topic string) ports.EventPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
	}
}

// PublishVerification publishes a verification event keyed by its authentication id
func (p *WatermillPublisher) PublishVerification(ctx context.Context, event core.VerificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.AuthenticationID, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
