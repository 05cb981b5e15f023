package event

import (
	"context"

	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// JournalHandler writes every domain event to the log, giving an audit
// trail of stock movements, cost changes and documents.
type JournalHandler struct {
	logger *zap.Logger
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(log *zap.Logger) *JournalHandler {
	return &JournalHandler{logger: log.Named("journal")}
}

// EventTypes returns nil: the journal receives all events
func (h *JournalHandler) EventTypes() []string {
	return nil
}

// Handle logs the event with its aggregate
func (h *JournalHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	logger.FromContext(ctx, h.logger).Info("domain event",
		zap.String("event_type", e.EventType()),
		zap.String("event_id", e.EventID().String()),
		zap.String("aggregate_type", e.AggregateType()),
		zap.String("aggregate_id", e.AggregateID().String()),
		zap.Time("occurred_at", e.OccurredAt()),
		zap.Any("payload", e),
	)
	return nil
}

var _ shared.EventHandler = (*JournalHandler)(nil)
