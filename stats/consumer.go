package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/lorenzboss/m321-memory/events"
)

// QueueName is the durable queue this service consumes game results
// from. It is bound to the game.events exchange on the end routing key
// only; start and move events are not interesting here.
const QueueName = "stats.game-results"

// Recorder folds a finished match into persistent aggregates.
type Recorder interface {
	RecordMatch(ctx context.Context, players []PlayerMatchStats) error
}

// Consumer consumes game-ended events and feeds them to the recorder.
type Consumer struct {
	conn       *events.Connection
	recorder   Recorder
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewConsumer creates a consumer on an established connection.
func NewConsumer(conn *events.Connection, recorder Recorder) *Consumer {
	return &Consumer{conn: conn, recorder: recorder}
}

// Start declares and binds the results queue, then begins consuming.
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
		return fmt.Errorf("failed to declare results queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "game.*.end", events.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind results queue: %w", err)
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

	log.Info().Str("queue", QueueName).Msg("consuming game results")

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
			if err := c.handle(ctx, msg.Body); err != nil {
				log.Error().Err(err).Msg("failed to process game result")
				// Drop rather than requeue: a malformed or unprocessable
				// event would loop forever.
				msg.Nack(false, false)
				continue
			}
			msg.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var event events.GameEnded
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to parse game-ended event: %w", err)
	}
	if event.MatchID == "" || len(event.PlayerStats) == 0 {
		return fmt.Errorf("incomplete game-ended event")
	}

	players := make([]PlayerMatchStats, 0, len(event.PlayerStats))
	for _, ps := range event.PlayerStats {
		if ps.Username == "" {
			continue
		}
		players = append(players, PlayerMatchStats{
			Username:      ps.Username,
			Score:         ps.Score,
			MatchDuration: event.Duration,
			IsWinner:      ps.Username == event.Winner,
		})
	}
	if len(players) == 0 {
		return fmt.Errorf("game-ended event has no usable players")
	}

	if err := c.recorder.RecordMatch(ctx, players); err != nil {
		return err
	}

	log.Info().
		Str("match_id", event.MatchID).
		Str("winner", event.Winner).
		Int("players", len(players)).
		Msg("match recorded")
	return nil
}
