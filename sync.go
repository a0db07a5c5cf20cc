package tenantauth

import (
	"context"
	"time"
)

// AccountCreated is emitted after an OTP confirmation so a companion system
// can provision the same credentials. Password is the value the user signed
// up with, not the stored hash.
type AccountCreated struct {
	// ID is unique per event so receivers can drop redeliveries
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountSyncer accepts account events for background delivery. Enqueue
// must not block on the downstream call; delivery failures are the
// implementation's to retry and log.
type AccountSyncer interface {
	EnqueueAccountCreated(ctx context.Context, event AccountCreated) error
}

// NoopSyncer drops all events. Used when no companion system is configured.
type NoopSyncer struct{}

func (NoopSyncer) EnqueueAccountCreated(ctx context.Context, event AccountCreated) error { return nil }
