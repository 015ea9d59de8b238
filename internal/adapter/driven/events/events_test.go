package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bankster/internal/adapter/driven/events"
	"github.com/ericfisherdev/bankster/internal/domain/model"
)

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func TestPublisher_Publish(t *testing.T) {
	ps := newPubSub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := ps.Subscribe(ctx, events.DefaultTopic)
	require.NoError(t, err)

	expires := time.Date(2026, 10, 21, 9, 0, 0, 0, time.UTC)
	event := model.AuthEvent{
		Kind:            model.AuthEventExpiring,
		Account:         "giro",
		WarningLevel:    model.WarningLevelExpiring,
		DaysUntilExpiry: 3,
		AuthExpires:     &expires,
		OccurredAt:      time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, events.NewPublisher(ps, "").Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, "auth_expiring", msg.Metadata.Get("kind"))
		assert.Equal(t, "giro", msg.Metadata.Get("account"))

		var got model.AuthEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, event.Account, got.Account)
		assert.Equal(t, 3, got.DaysUntilExpiry)
		assert.True(t, expires.Equal(*got.AuthExpires))
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

// syncBuffer guards a buffer shared with the notifier goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogNotifier_LogsSetupLink(t *testing.T) {
	ps := newPubSub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	notifier := events.NewLogNotifier(ps, "", func(account string) string {
		return "http://localhost:8080/accounts/" + account + "/fints-setup"
	}, logger)

	done := make(chan error, 1)
	go func() { done <- notifier.Run(ctx) }()

	publisher := events.NewPublisher(ps, "")
	assert.Eventually(t, func() bool {
		// Retry until the notifier has subscribed; gochannel drops
		// messages published without subscribers.
		_ = publisher.Publish(ctx, model.AuthEvent{Kind: model.AuthEventExpired, Account: "giro", DaysUntilExpiry: -2})
		return strings.Contains(out.String(), "bank authentication expired")
	}, 5*time.Second, 20*time.Millisecond)

	assert.Contains(t, out.String(), "setup_url=http://localhost:8080/accounts/giro/fints-setup")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("notifier did not stop")
	}
}
