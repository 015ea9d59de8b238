package driven

import (
	"context"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

// AuthEventPublisher defines the driven port for authentication lifecycle
// notifications.
type AuthEventPublisher interface {
	Publish(ctx context.Context, event model.AuthEvent) error
}
