package services

import (
	"context"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
)

// EventPublisher announces transaction writes. *amqp.Client satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev amqp.TransactionEvent) error
}

// publish is best effort: the write already succeeded, so a broker failure
// is only logged.
func publish(ctx context.Context, p EventPublisher, logger *log.Logger, typ amqp.EventType, userID, txID int64) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, amqp.NewTransactionEvent(typ, userID, txID)); err != nil {
		logger.Fields(ctx, slog.LevelError, "Failed to publish transaction event", log.NewFields().
			WithOperation(string(typ)).
			WithUser(userID).
			Add(log.FieldTxID, txID).
			WithError(err))
	}
}
