package tenantauth

import (
	"context"
	"log/slog"
)

// Delivery is the outcome of a notification attempt. The core only looks at Sent.
type Delivery struct {
	Sent bool
	Err  error
}

// Delivered is the successful Delivery.
var Delivered = Delivery{Sent: true}

// Failed wraps err as an unsuccessful Delivery.
func Failed(err error) Delivery {
	return Delivery{Sent: false, Err: err}
}

// Dispatcher delivers one-time codes to users. Implementations live in the
// notify package; ConsoleDispatcher is the development fallback.
type Dispatcher interface {
	SendEmailOTP(ctx context.Context, email, code string) Delivery
	SendSMSOTP(ctx context.Context, phone, code string) Delivery
}

// ConsoleDispatcher is a development implementation that logs codes instead of sending them
type ConsoleDispatcher struct {
	Logger *slog.Logger
}

func (c *ConsoleDispatcher) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *ConsoleDispatcher) SendEmailOTP(ctx context.Context, email, code string) Delivery {
	c.logger().InfoContext(ctx, "=== EMAIL: Verification code ===",
		"to", email,
		"subject", "Your verification code",
		"code", code)
	return Delivered
}

func (c *ConsoleDispatcher) SendSMSOTP(ctx context.Context, phone, code string) Delivery {
	c.logger().InfoContext(ctx, "=== SMS: Verification code ===", "to", phone, "code", code)
	return Delivered
}
