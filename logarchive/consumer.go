package logarchive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/lorenzboss/m321-memory/events"
)

// QueueName is the durable queue the archive consumes from. It binds to
// every lifecycle event of every game, unlike the stats queue which
// only sees results.
const QueueName = "logs.game-events"

// Archiver stores lifecycle events per match.
type Archiver interface {
	RecordStart(event events.GameStarted) error
	RecordMove(event events.GameMove) error
	RecordEnd(event events.GameEnded) error
}

// Consumer consumes game lifecycle events and feeds them to the
// archiver.
type Consumer struct {
	conn       *events.Connection
	archiver   Archiver
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewConsumer creates a consumer on an established connection.
func NewConsumer(conn *events.Connection, archiver Archiver) *Consumer {
	return &Consumer{conn: conn, archiver: archiver}
}

// Start declares and binds the archive queue, then begins consuming.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	if _, err := ch.QueueDeclare(
		QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare archive queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "game.*.*", events.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind archive queue: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		QueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual ack for reliability)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	log.Info().Str("queue", QueueName).Msg("archiving game events")

	c.wg.Add(1)
	go c.worker(ctx, msgs)
	return nil
}

// Stop cancels consumption and waits for in-flight work.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}

func (c *Consumer) worker(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := c.handle(msg.RoutingKey, msg.Body); err != nil {
				log.Error().Err(err).Str("routing_key", msg.RoutingKey).
					Msg("failed to archive game event")
				// Drop rather than requeue: a malformed event would
				// loop forever.
				msg.Nack(false, false)
				continue
			}
			msg.Ack(false)
		}
	}
}

// handle dispatches one event on the kind encoded in its routing key
// (game.<matchId>.<kind>).
func (c *Consumer) handle(routingKey string, body []byte) error {
	parts := strings.Split(routingKey, ".")
	if len(parts) != 3 {
		return fmt.Errorf("unexpected routing key %q", routingKey)
	}

	switch parts[2] {
	case "start":
		var event events.GameStarted
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("failed to parse game-started event: %w", err)
		}
		return c.archiver.RecordStart(event)

	case "move":
		var event events.GameMove
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("failed to parse game-move event: %w", err)
		}
		return c.archiver.RecordMove(event)

	case "end":
		var event events.GameEnded
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("failed to parse game-ended event: %w", err)
		}
		return c.archiver.RecordEnd(event)
	}
	return fmt.Errorf("unknown event kind %q", parts[2])
}
