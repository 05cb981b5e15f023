package inventory

import (
	"context"
	"fmt"

	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"go.uber.org/zap"
)

// Alert types
const (
	AlertLowStock   = "low_stock"
	AlertOutOfStock = "out_of_stock"
)

// StockAlert is a low stock notification
type StockAlert struct {
	ItemID    string `json:"item_id"`
	ItemKey   string `json:"item_key"`
	Name      string `json:"name"`
	OnHand    string `json:"on_hand"`
	MinStock  string `json:"min_stock"`
	AlertType string `json:"alert_type"`
}

// StockAlertNotifier delivers stock alerts
type StockAlertNotifier interface {
	SendAlert(ctx context.Context, alert StockAlert) error
}

// StockBelowThresholdHandler turns StockBelowThreshold events into alerts
type StockBelowThresholdHandler struct {
	logger   *zap.Logger
	notifier StockAlertNotifier
}

// NewStockBelowThresholdHandler creates a new handler for stock below threshold events
func NewStockBelowThresholdHandler(logger *zap.Logger) *StockBelowThresholdHandler {
	return &StockBelowThresholdHandler{logger: logger}
}

// WithNotifier sets the notifier for sending alerts
func (h *StockBelowThresholdHandler) WithNotifier(notifier StockAlertNotifier) *StockBelowThresholdHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *StockBelowThresholdHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockBelowThreshold}
}

// Handle processes a StockBelowThresholdEvent. Notification failures are
// logged and swallowed.
func (h *StockBelowThresholdHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*inventory.StockBelowThresholdEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockBelowThreshold, event.EventType())
	}

	alertType := AlertLowStock
	if !e.OnHand.IsPositive() {
		alertType = AlertOutOfStock
	}
	alert := StockAlert{
		ItemID:    e.ItemID.String(),
		ItemKey:   e.ItemKey,
		Name:      e.Name,
		OnHand:    e.OnHand.String(),
		MinStock:  e.MinStock.String(),
		AlertType: alertType,
	}

	h.logger.Warn("stock below threshold detected",
		zap.String("item_key", alert.ItemKey),
		zap.String("on_hand", alert.OnHand),
		zap.String("min_stock", alert.MinStock),
		zap.String("alert_type", alertType),
	)

	if h.notifier != nil {
		if err := h.notifier.SendAlert(ctx, alert); err != nil {
			h.logger.Error("failed to send stock alert notification",
				zap.String("item_key", alert.ItemKey),
				zap.Error(err),
			)
		}
	}
	return nil
}

var _ shared.EventHandler = (*StockBelowThresholdHandler)(nil)

// LoggingStockAlertNotifier writes alerts to the log
type LoggingStockAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingStockAlertNotifier creates a new logging notifier
func NewLoggingStockAlertNotifier(logger *zap.Logger) *LoggingStockAlertNotifier {
	return &LoggingStockAlertNotifier{logger: logger}
}

// SendAlert logs the stock alert
func (n *LoggingStockAlertNotifier) SendAlert(_ context.Context, alert StockAlert) error {
	n.logger.Warn("STOCK ALERT",
		zap.String("type", alert.AlertType),
		zap.String("item", alert.Name),
		zap.String("on_hand", alert.OnHand),
		zap.String("min_stock", alert.MinStock),
	)
	return nil
}
