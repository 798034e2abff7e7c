package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"ledgerchat/internal/core"
	applog "ledgerchat/internal/log"
)

// Client publishes and consumes archive events over a durable direct
// exchange. The chat path treats the publisher as optional: a nil *Client is
// valid and drops events.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishRecordAppended mirrors one appended record. Nil receiver drops.
func (c *Client) PublishRecordAppended(ctx context.Context, id string, tx core.Transaction) error {
	if c == nil {
		return nil
	}
	body, err := envelope(KindRecordAppended, NewRecordAppendedMessage(id, tx))
	if err != nil {
		return fmt.Errorf("marshal append event: %w", err)
	}
	return c.publish(ctx, body)
}

// PublishLedgerReset marks a bulk reset. Nil receiver drops.
func (c *Client) PublishLedgerReset(ctx context.Context, deleted int) error {
	if c == nil {
		return nil
	}
	body, err := envelope(KindLedgerReset, NewLedgerResetMessage(deleted))
	if err != nil {
		return fmt.Errorf("marshal reset event: %w", err)
	}
	return c.publish(ctx, body)
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// ConsumeMessages dispatches archive events to kind-specific handlers until
// the context is canceled. Malformed messages are rejected without requeue;
// handler failures requeue.
func (c *Client) ConsumeMessages(ctx context.Context,
	onAppend func(context.Context, *RecordAppendedMessage) error,
	onReset func(context.Context, *LedgerResetMessage) error,
) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming archive events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			if err := c.route(ctx, delivery.Body, onAppend, onReset); err != nil {
				if isMalformed(err) {
					slog.ErrorContext(ctx, "Dropping malformed message", applog.FieldError, err)
					delivery.Nack(false, false)
					continue
				}
				slog.ErrorContext(ctx, "Failed to handle message", applog.FieldError, err)
				delivery.Nack(false, true)
				continue
			}
			delivery.Ack(false)
		}
	}
}

type malformedError struct{ err error }

func (m malformedError) Error() string { return m.err.Error() }
func (m malformedError) Unwrap() error { return m.err }

func isMalformed(err error) bool {
	_, ok := err.(malformedError)
	return ok
}

func (c *Client) route(ctx context.Context, body []byte,
	onAppend func(context.Context, *RecordAppendedMessage) error,
	onReset func(context.Context, *LedgerResetMessage) error,
) error {
	env, err := EnvelopeFromJSON(body)
	if err != nil {
		return malformedError{fmt.Errorf("unmarshal envelope: %w", err)}
	}

	switch env.Kind {
	case KindRecordAppended:
		var msg RecordAppendedMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return malformedError{fmt.Errorf("unmarshal append payload: %w", err)}
		}
		return onAppend(ctx, &msg)
	case KindLedgerReset:
		var msg LedgerResetMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return malformedError{fmt.Errorf("unmarshal reset payload: %w", err)}
		}
		return onReset(ctx, &msg)
	default:
		return malformedError{fmt.Errorf("unknown message kind %q", env.Kind)}
	}
}

// ConsumeWithReconnect keeps the consumer alive across broker restarts,
// re-dialing with exponential backoff on connection-level failures.
func ConsumeWithReconnect(ctx context.Context, url, exchange, queue string,
	onAppend func(context.Context, *RecordAppendedMessage) error,
	onReset func(context.Context, *LedgerResetMessage) error,
) error {
	attempt := 0
	for {
		client, err := NewClient(url, exchange, queue)
		if err == nil {
			attempt = 0
			err = client.ConsumeMessages(ctx, onAppend, onReset)
			client.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting",
			applog.FieldError, err, "wait", wait, "attempt", attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	const maxBackoff = 30 * time.Second
	if attempt > 5 {
		return maxBackoff
	}
	backoff := time.Second << uint(attempt)
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}

// isConnectionError reports whether the error looks like a broker
// connectivity failure worth re-dialing for.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"connection refused",
		"connection closed",
		"connection reset",
		"channel/connection is not open",
		"unexpected eof",
		"broken pipe",
		"message channel closed",
		"no route to host",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
