package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/MohsinAliJafery/backend/internal/events"
	"github.com/MohsinAliJafery/backend/internal/model"
)

type stubChannel struct {
	publishFn func(ctx context.Context, exchange, key string, msg amqp.Publishing) error
}

func (s *stubChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	return s.publishFn(ctx, exchange, key, msg)
}

func sampleEvent() model.SubscriptionEvent {
	return model.SubscriptionEvent{
		TransactionID: "tx-1",
		OrderID:       "ORDER_1",
		UserID:        "user-1",
		Tier:          model.TierMonthly,
		Amount:        decimal.RequireFromString("29.99"),
		Currency:      "USD",
		CompletedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRabbitMQPublisher_Publish(t *testing.T) {
	var (
		gotExchange, gotKey string
		gotMsg              amqp.Publishing
	)
	ch := &stubChannel{publishFn: func(_ context.Context, exchange, key string, msg amqp.Publishing) error {
		gotExchange, gotKey, gotMsg = exchange, key, msg
		return nil
	}}

	err := events.NewRabbitMQPublisher(ch, "payment.events").PublishSubscriptionExtended(context.Background(), sampleEvent())
	require.NoError(t, err)
	require.Equal(t, "payment.events", gotExchange)
	require.Equal(t, events.SubscriptionExtendedKey, gotKey)
	require.Equal(t, amqp.Persistent, gotMsg.DeliveryMode)
	require.NotEmpty(t, gotMsg.MessageId)

	var decoded model.SubscriptionEvent
	require.NoError(t, json.Unmarshal(gotMsg.Body, &decoded))
	require.Equal(t, "user-1", decoded.UserID)
	require.Equal(t, model.TierMonthly, decoded.Tier)
}

func TestRabbitMQPublisher_WrapsError(t *testing.T) {
	boom := errors.New("channel closed")
	ch := &stubChannel{publishFn: func(context.Context, string, string, amqp.Publishing) error { return boom }}

	err := events.NewRabbitMQPublisher(ch, "payment.events").PublishSubscriptionExtended(context.Background(), sampleEvent())
	require.ErrorIs(t, err, boom)
}

func TestLogEventPublisher(t *testing.T) {
	p := events.NewLogEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, p.PublishSubscriptionExtended(context.Background(), sampleEvent()))
}
