package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/allowance-service/internal/models"
)

// SummaryUpserted is the event type announced for every written summary
const SummaryUpserted = "weekly_summary.upserted"

// SummaryEvent is the message body published for a weekly summary
type SummaryEvent struct {
	Type        string               `json:"type"`
	Summary     models.WeeklySummary `json:"summary"`
	PublishedAt time.Time            `json:"published_at"`
}

func newSummaryEvent(s *models.WeeklySummary, at time.Time) ([]byte, error) {
	return json.Marshal(SummaryEvent{Type: SummaryUpserted, Summary: *s, PublishedAt: at.UTC()})
}

// Publisher sends summary events to a topic exchange
type Publisher struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	exchange   string
	routingKey string
	log        *logrus.Logger
}

// NewPublisher dials the broker and declares the exchange
func NewPublisher(url, exchange, routingKey string, log *logrus.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:       conn,
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
		log:        log,
	}, nil
}

// PublishSummary publishes s as a persistent JSON message
func (p *Publisher) PublishSummary(ctx context.Context, s *models.WeeklySummary) error {
	now := time.Now()
	body, err := newSummaryEvent(s, now)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,   // exchange
		p.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    now,
			MessageId:    s.ID,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"child_id":    s.ChildID,
		"exchange":    p.exchange,
		"routing_key": p.routingKey,
	}).Debug("Published weekly summary event")
	return nil
}

// Close closes the channel and connection
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
