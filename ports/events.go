package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// EventPublisher publishes verification outcomes to other services
type EventPublisher interface {
	PublishVerification(ctx context.Context, event core.VerificationEvent) error
}
