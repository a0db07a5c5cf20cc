package accountsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"

	oa "github.com/panyam/tenantauth"
)

const (
	DefaultExchange   = "accounts"
	AccountCreatedKey = "account.created"
)

// AMQPChannel is the subset of *amqp.Channel used for publishing
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSender publishes events to a durable topic exchange under the
// "account.created" routing key.
type AMQPSender struct {
	Channel  AMQPChannel
	Exchange string
	closers  []io.Closer
}

// NewAMQPSender dials url and declares the exchange
func NewAMQPSender(url, exchange string) (*AMQPSender, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPSender{Channel: ch, Exchange: exchange, closers: []io.Closer{ch, conn}}, nil
}

func (s *AMQPSender) Send(ctx context.Context, event oa.AccountCreated) error {
	body, err := json.Marshal(event)
	if err != nil {
		return backoff.Permanent(err)
	}
	err = s.Channel.PublishWithContext(ctx, s.Exchange, AccountCreatedKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish account event: %w", err)
	}
	return nil
}

// Close closes the channel and connection opened by NewAMQPSender
func (s *AMQPSender) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
