package accountsync

import (
	"context"

	oa "github.com/panyam/tenantauth"
)

// Sender delivers one event. Returning an error wrapped with
// backoff.Permanent stops retries.
type Sender interface {
	Send(ctx context.Context, event oa.AccountCreated) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, event oa.AccountCreated) error

func (f SenderFunc) Send(ctx context.Context, event oa.AccountCreated) error {
	return f(ctx, event)
}
