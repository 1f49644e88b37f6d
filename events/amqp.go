package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// ExchangeName is the topic exchange all game lifecycle events flow
// through. Routing keys are game.<matchId>.<start|move|end>, so
// consumers can bind to game.*.end for just the results.
const ExchangeName = "game.events"

// Connection manages the RabbitMQ connection with automatic reconnection.
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// NewConnection dials the broker and declares the event exchange.
func NewConnection(url string) (*Connection, error) {
	c := &Connection{url: url}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := c.channel.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	go c.handleReconnect()

	log.Info().Str("exchange", ExchangeName).Msg("connected to RabbitMQ")
	return nil
}

// handleReconnect listens for connection close and attempts to reconnect.
func (c *Connection) handleReconnect() {
	notifyClose := c.conn.NotifyClose(make(chan *amqp.Error, 1))

	err := <-notifyClose
	if err == nil {
		return // normal close
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	log.Warn().Err(err).Int("reconnects", c.reconnects).
		Msg("RabbitMQ connection closed, attempting to reconnect")

	// Exponential backoff
	for i := 0; i < 10; i++ {
		c.reconnects++
		backoff := time.Duration(1<<i) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
		time.Sleep(backoff)

		if err := c.connect(); err != nil {
			log.Error().Err(err).Int("attempt", i+1).Msg("reconnection failed")
			continue
		}

		log.Info().Int("attempts", i+1).Msg("reconnected to RabbitMQ")
		return
	}

	log.Error().Msg("failed to reconnect to RabbitMQ after 10 attempts")
}

// Channel returns the current channel (thread-safe).
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// IsConnected checks if the connection is active.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close closes the connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// publishJSON publishes a JSON payload with the given routing key.
func (c *Connection) publishJSON(ctx context.Context, routingKey string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	return ch.PublishWithContext(
		ctx,
		ExchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// AMQPPublisher publishes lifecycle events to the game.events exchange.
type AMQPPublisher struct {
	conn *Connection
}

// NewAMQPPublisher wraps an established connection as a Publisher.
func NewAMQPPublisher(conn *Connection) *AMQPPublisher {
	return &AMQPPublisher{conn: conn}
}

func (p *AMQPPublisher) PublishStart(ctx context.Context, event GameStarted) error {
	return p.conn.publishJSON(ctx, fmt.Sprintf("game.%s.start", event.MatchID), event)
}

func (p *AMQPPublisher) PublishMove(ctx context.Context, event GameMove) error {
	return p.conn.publishJSON(ctx, fmt.Sprintf("game.%s.move", event.MatchID), event)
}

func (p *AMQPPublisher) PublishEnd(ctx context.Context, event GameEnded) error {
	return p.conn.publishJSON(ctx, fmt.Sprintf("game.%s.end", event.MatchID), event)
}
