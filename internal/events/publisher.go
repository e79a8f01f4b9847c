package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/MohsinAliJafery/backend/internal/model"
)

const SubscriptionExtendedKey = "subscription.extended"

// AMQPChannel is the part of *amqp.Channel the publisher uses.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQPublisher struct {
	channel  AMQPChannel
	exchange string
}

func NewRabbitMQPublisher(ch AMQPChannel, exchange string) *RabbitMQPublisher {
	return &RabbitMQPublisher{channel: ch, exchange: exchange}
}

func (p *RabbitMQPublisher) PublishSubscriptionExtended(ctx context.Context, event model.SubscriptionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal subscription event %s: %w", event.OrderID, err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		SubscriptionExtendedKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Headers: amqp.Table{
				"event_type":   SubscriptionExtendedKey,
				"aggregate_id": event.TransactionID,
				"order_id":     event.OrderID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("publish subscription event %s: %w", event.OrderID, err)
	}
	return nil
}
