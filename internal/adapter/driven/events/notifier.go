package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

// SetupURLFunc returns the setup wizard link of an account.
type SetupURLFunc func(account string) string

// LogNotifier consumes AuthEvents and reports them through the logger, with
// the link an operator needs to re-authenticate.
type LogNotifier struct {
	subscriber message.Subscriber
	topic      string
	setupURL   SetupURLFunc
	logger     *slog.Logger
}

// NewLogNotifier creates a LogNotifier. An empty topic uses DefaultTopic.
func NewLogNotifier(subscriber message.Subscriber, topic string, setupURL SetupURLFunc, logger *slog.Logger) *LogNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{subscriber: subscriber, topic: topic, setupURL: setupURL, logger: logger}
}

// Run consumes events until the context is canceled or the subscription
// closes. Malformed messages are logged and acknowledged.
func (n *LogNotifier) Run(ctx context.Context) error {
	messages, err := n.subscriber.Subscribe(ctx, n.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", n.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			n.handle(msg)
			msg.Ack()
		}
	}
}

func (n *LogNotifier) handle(msg *message.Message) {
	var event model.AuthEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		n.logger.Error("malformed auth event", "message_id", msg.UUID, "error", err)
		return
	}

	log := n.logger.With("account", event.Account, "days_until_expiry", event.DaysUntilExpiry)
	switch event.Kind {
	case model.AuthEventExpiring:
		log.Warn("bank authentication expires soon", "setup_url", n.setupURL(event.Account))
	case model.AuthEventExpired:
		log.Warn("bank authentication expired", "setup_url", n.setupURL(event.Account))
	case model.AuthEventRenewed:
		log.Info("bank authentication renewed", "auth_expires", event.AuthExpires)
	default:
		log.Warn("unknown auth event", "kind", event.Kind)
	}
}
