package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"moneytrace/internal/events"
	"moneytrace/internal/log"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
	connectRetries = 3
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	queueName    string
	routingKeys  []string
	logger       *log.Logger

	// breaker trips after maxFailures consecutive broker failures and
	// rejects publishes until openTimeout has passed.
	breaker *gobreaker.CircuitBreaker

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewClient dials the broker and declares a durable direct exchange and a
// queue bound to every routing key. Without keys the queue name is used.
func NewClient(url, exchangeName, queueName string, logger *log.Logger, routingKeys ...string) (*Client, error) {
	if len(routingKeys) == 0 {
		routingKeys = []string{queueName}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentAMQP)
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		routingKeys:  routingKeys,
		logger:       logger,
		breaker:      newBreaker("amqp-"+exchangeName, openTimeout, logger),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// LedgerRoutingKeys are the event names the ledger queue receives.
func LedgerRoutingKeys() []string {
	return []string{
		events.NameOperationCreated,
		events.NameOperationUpdated,
		events.NameOperationDeleted,
		events.NameUserCreated,
		events.NameBillPaid,
		events.NameBudgetCreated,
	}
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName, c.routingKeys); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string, keys []string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, key := range keys {
		if err := ch.QueueBind(queue, key, exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", key, err)
		}
	}
	return nil
}

// ensureChannel reconnects with exponential backoff when the channel is gone.
func (c *Client) ensureChannel(ctx context.Context) (*amqp091.Channel, error) {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch != nil && !ch.IsClosed() {
		return ch, nil
	}

	var lastErr error
	for attempt := 0; attempt < connectRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}
		if lastErr = c.connect(); lastErr == nil {
			c.mu.Lock()
			ch = c.channel
			c.mu.Unlock()
			return ch, nil
		}
		c.logger.WarnContext(ctx, "AMQP reconnect failed", log.FieldAttempt, attempt+1, log.FieldError, lastErr)
	}
	return nil, fmt.Errorf("reconnect: %w", lastErr)
}

// PublishEvent publishes msg with its event name as routing key. It returns
// ErrCircuitOpen without touching the broker while the breaker is open.
func (c *Client) PublishEvent(ctx context.Context, msg *LedgerEventMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		ch, err := c.ensureChannel(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, unavailable(err)
		}

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		err = ch.PublishWithContext(pubCtx, c.exchangeName, msg.Name, false, false, amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.EventID,
			Timestamp:    msg.Timestamp,
			Body:         body,
		})
		if err != nil {
			err = fmt.Errorf("publish message: %w", err)
			if isConnectionError(err) {
				return nil, unavailable(err)
			}
			return nil, err
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("publish %s: %w", msg.Name, ErrCircuitOpen)
	}
	if err != nil {
		return err
	}

	c.logger.DebugContext(ctx, "Published ledger event",
		log.FieldEventID, msg.EventID,
		log.FieldEventName, msg.Name,
		"exchange", c.exchangeName)
	return nil
}

// Forward is an events.Handler that publishes every dispatched event.
func (c *Client) Forward(ctx context.Context, env *events.Envelope) error {
	return c.PublishEvent(ctx, NewLedgerEventMessage(env))
}

// ConsumeEvents delivers messages to handler until ctx is done. Malformed
// messages are dropped; handler errors requeue the message.
func (c *Client) ConsumeEvents(ctx context.Context, handler func(context.Context, *LedgerEventMessage) error) error {
	ch, err := c.ensureChannel(ctx)
	if err != nil {
		return err
	}
	msgs, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}

			msg, err := LedgerEventMessageFromJSON(delivery.Body)
			if err != nil {
				c.logger.ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err)
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, msg); err != nil {
				c.logger.ErrorContext(ctx, "Failed to handle message",
					log.FieldError, err,
					log.FieldEventID, msg.EventID,
					log.FieldEventName, msg.Name)
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// brokerUnavailable marks errors that count against the circuit breaker.
// Other publish errors (a bad message, a cancelled context) leave it alone.
type brokerUnavailable struct{ err error }

func (e *brokerUnavailable) Error() string { return e.err.Error() }
func (e *brokerUnavailable) Unwrap() error { return e.err }

func unavailable(err error) error { return &brokerUnavailable{err: err} }

func newBreaker(name string, timeout time.Duration, logger *log.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			var be *brokerUnavailable
			return !errors.As(err, &be)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("AMQP circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "connection closed", "unexpected EOF", "broken pipe", "use of closed network connection"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
