package application

import (
	"context"

	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// Operation is a remote call against a bank session. It receives the
// current handle because a renewal replaces the session's client.
type Operation[T any] func(ctx context.Context, client driven.BankSession) (T, error)

// RunWithRenewal executes op on the session. When op fails with an error
// classified as an invalidated authentication, the stored authentication is
// marked expired and, if the session can renew unattended, renewed; op is
// then run exactly once more and its outcome returned as is. Every other
// failure, and an authentication failure that cannot be renewed, is returned
// unchanged.
func RunWithRenewal[T any](ctx context.Context, s *Session, op Operation[T]) (T, error) {
	result, err := op(ctx, s.client)
	if err == nil {
		return result, nil
	}

	var zero T
	f := s.factory
	if !f.policy.Classifier().IsAuthError(err) {
		return zero, err
	}

	log := f.logger.With("account", s.account.ID)
	log.Warn("authentication error detected", "error", err)
	s.markExpired(ctx)

	if !s.CanAutoRenew() {
		return zero, err
	}

	log.Info("attempting auto-renewal after authentication error")
	if !s.AttemptAutoRenewal(ctx) {
		log.Error("auto-renewal failed, cannot retry operation")
		return zero, err
	}

	log.Info("retrying operation after successful auto-renewal")
	return op(ctx, s.client)
}
