// Package messaging publishes committed order events to RabbitMQ so that
// systems outside the API (kitchen displays, analytics) can follow orders.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/ezh-cafe/api/internal/service"
	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 10 * time.Second

// Channel is the publishing side of an AMQP channel.
// Satisfied by *amqp091.Channel.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// ChannelSource hands out a live channel. Satisfied by *Connection.
type ChannelSource interface {
	Channel() (Channel, error)
}

// Publisher implements service.EventSink on the orders topic exchange.
// Routing keys are "<event>.<venue id>", e.g. "order.created.ezh-lenina".
type Publisher struct {
	source ChannelSource
}

func NewPublisher(source ChannelSource) *Publisher {
	return &Publisher{source: source}
}

// Publish sends the order event. Failures are logged, never returned.
func (p *Publisher) Publish(ctx context.Context, event string, order database.Order) {
	if err := p.publish(ctx, event, order); err != nil {
		log.Printf("WARN: publish %s for order %s: %v", event, order.ID, err)
	}
}

func (p *Publisher) publish(ctx context.Context, event string, order database.Order) error {
	body, err := json.Marshal(service.NewOrderView(order))
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ch, err := p.source.Channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := RoutingKey(event, order.VenueID)
	err = ch.PublishWithContext(
		ctx,
		OrdersExchange, // exchange
		key,            // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			MessageId:    order.ID.String(),
			Type:         event,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// RoutingKey builds the topic key for an event. Dots in the venue id would
// split it into extra words, so they are replaced.
func RoutingKey(event, venueID string) string {
	return event + "." + strings.ReplaceAll(venueID, ".", "_")
}

// Fanout delivers each event to every sink in order.
type Fanout []service.EventSink

func (f Fanout) Publish(ctx context.Context, event string, order database.Order) {
	for _, sink := range f {
		sink.Publish(ctx, event, order)
	}
}
