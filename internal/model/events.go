package model

import "context"

// Publisher emits domain events. Delivery is best effort: Publish never
// blocks the caller and never reports failures.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any)
}
