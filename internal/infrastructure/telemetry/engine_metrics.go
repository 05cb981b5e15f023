package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// EngineMetrics records business activity of the costing engine.
// A nil *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	logger *zap.Logger

	purchasesCommitted  *Counter
	salesTotal          *Counter
	saleAmountCents     *Counter
	returnsTotal        *Counter
	consistencyFailures *Counter
	warningsTotal       *Counter
	operationDuration   *Histogram
	lowStockItems       *Gauge
}

// NewEngineMetrics registers the engine instruments on meter
func NewEngineMetrics(meter metric.Meter, logger *zap.Logger) (*EngineMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	in := &instruments{meter: meter}
	m := &EngineMetrics{
		logger: logger,
		purchasesCommitted: in.counter("pharmacy_purchases_committed_total",
			"Supplier invoices committed to stock", "{invoices}"),
		salesTotal: in.counter("pharmacy_sales_total",
			"Bills issued", "{bills}"),
		saleAmountCents: in.counter("pharmacy_sale_amount_total",
			"Billed amount in cents", "{cents}"),
		returnsTotal: in.counter("pharmacy_returns_total",
			"Return documents recorded", "{returns}"),
		consistencyFailures: in.counter("pharmacy_consistency_failures_total",
			"Multi-step operations rolled back after they started mutating", "{failures}"),
		warningsTotal: in.counter("pharmacy_warnings_total",
			"Non-fatal warnings reported to callers", "{warnings}"),
		operationDuration: in.histogram("pharmacy_operation_duration_seconds",
			"Duration of engine operations", "s", OperationDurationBuckets),
		lowStockItems: in.gauge("pharmacy_inventory_low_stock_count",
			"Items below their minimum stock", "{items}"),
	}
	if in.err != nil {
		return nil, in.err
	}

	return m, nil
}

// RecordPurchaseCommitted counts a committed invoice
func (m *EngineMetrics) RecordPurchaseCommitted(ctx context.Context) {
	if m == nil {
		return
	}
	m.purchasesCommitted.Inc(ctx)
}

// RecordSale counts a bill and its total
func (m *EngineMetrics) RecordSale(ctx context.Context, paymentMethod string, total decimal.Decimal) {
	if m == nil {
		return
	}
	m.salesTotal.Inc(ctx, AttrPaymentMethod.String(paymentMethod))
	m.saleAmountCents.Add(ctx, total.Shift(2).IntPart(), AttrPaymentMethod.String(paymentMethod))
}

// RecordReturn counts a return document
func (m *EngineMetrics) RecordReturn(ctx context.Context, returnType string) {
	if m == nil {
		return
	}
	m.returnsTotal.Inc(ctx, AttrReturnType.String(returnType))
}

// RecordConsistencyFailure counts a rolled back operation
func (m *EngineMetrics) RecordConsistencyFailure(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.consistencyFailures.Inc(ctx, AttrOperation.String(operation))
}

// RecordWarning counts a warning by code
func (m *EngineMetrics) RecordWarning(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.warningsTotal.Inc(ctx, AttrWarningCode.String(code))
}

// RecordDuration records how long operation took
func (m *EngineMetrics) RecordDuration(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.operationDuration.RecordDuration(ctx, d, AttrOperation.String(operation), AttrOutcome.String(outcome))
}

// RecordLowStockCount records the current number of items below minimum
func (m *EngineMetrics) RecordLowStockCount(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.lowStockItems.Record(ctx, n)
}
