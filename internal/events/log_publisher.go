package events

import (
	"context"
	"log/slog"

	"github.com/MohsinAliJafery/backend/internal/model"
)

// LogEventPublisher logs events instead of sending them to a broker. It is
// used when RABBIT_URL is not configured.
type LogEventPublisher struct {
	logger *slog.Logger
}

func NewLogEventPublisher(logger *slog.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger}
}

func (p *LogEventPublisher) PublishSubscriptionExtended(ctx context.Context, event model.SubscriptionEvent) error {
	p.logger.InfoContext(ctx, "subscription event published",
		slog.String("transaction_id", event.TransactionID),
		slog.String("order_id", event.OrderID),
		slog.String("user_id", event.UserID),
		slog.String("tier", string(event.Tier)),
	)
	return nil
}
