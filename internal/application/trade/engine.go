package trade

import (
	"context"
	"errors"
	"time"

	"github.com/hospital/pharmacy/internal/domain/sequence"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/infrastructure/logger"
	"github.com/hospital/pharmacy/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Numbering configures the document number families
type Numbering struct {
	Bills     sequence.Kind
	Returns   sequence.Kind
	Purchases sequence.Kind
	Location  *time.Location
	Padding   int
}

// DefaultNumbering issues B-YYMMDD-nnnn bills, RET-YYYYMM-nnnn returns and
// PI-YYYYMM-nnnn generated invoice references in local time.
func DefaultNumbering() Numbering {
	return Numbering{
		Bills:     sequence.Kind{Prefix: "B", Period: sequence.Daily},
		Returns:   sequence.Kind{Prefix: "RET", Period: sequence.Monthly},
		Purchases: sequence.Kind{Prefix: "PI", Period: sequence.Monthly},
		Location:  time.Local,
		Padding:   4,
	}
}

func (n Numbering) generator(counters sequence.CounterRepository) *sequence.Generator {
	return sequence.NewGenerator(counters, n.Location, n.Padding)
}

// engine holds what every mutating service shares
type engine struct {
	scope     TransactionScope
	numbering Numbering
	logger    *zap.Logger
	locker    Locker
	publisher shared.EventPublisher
	metrics   *telemetry.EngineMetrics
	now       func() time.Time
}

func newEngine(scope TransactionScope, numbering Numbering, log *zap.Logger) engine {
	if log == nil {
		log = zap.NewNop()
	}
	return engine{
		scope:     scope,
		numbering: numbering,
		logger:    log,
		now:       time.Now,
	}
}

// SetEventPublisher sets the publisher that receives domain events after commit
func (e *engine) SetEventPublisher(publisher shared.EventPublisher) {
	e.publisher = publisher
}

// SetEngineMetrics sets the business metrics collector
func (e *engine) SetEngineMetrics(m *telemetry.EngineMetrics) {
	e.metrics = m
}

// SetLocker sets the cross-process document lock
func (e *engine) SetLocker(locker Locker) {
	e.locker = locker
}

// SetClock replaces the time source
func (e *engine) SetClock(now func() time.Time) {
	e.now = now
}

// fail classifies an error raised inside a transaction. Domain errors go
// back to the caller untouched, as do deadline and cancellation errors;
// anything else means the database refused a write part way through, so it
// is reported as a consistency failure.
func (e *engine) fail(ctx context.Context, operation, reference string, err error) error {
	if err == nil || shared.IsDomainError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		logger.FromContext(ctx, e.logger).Warn("Operation abandoned",
			zap.String("operation", operation),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return err
	}
	var ce *shared.ConsistencyError
	if !errors.As(err, &ce) {
		ce = shared.NewConsistencyError(operation, reference, err)
	}
	logger.FromContext(ctx, e.logger).Error("Operation rolled back",
		zap.String("operation", operation),
		zap.String("reference", reference),
		zap.Bool("alert", true),
		zap.Error(err),
	)
	e.metrics.RecordConsistencyFailure(ctx, operation)
	return ce
}

// publish hands committed events to the publisher. Delivery failures are
// logged; the operation has already committed.
func (e *engine) publish(ctx context.Context, events []shared.DomainEvent) {
	if e.publisher == nil || len(events) == 0 {
		return
	}
	if err := e.publisher.Publish(ctx, events...); err != nil {
		logger.FromContext(ctx, e.logger).Warn("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

func (e *engine) recordWarnings(ctx context.Context, warnings []shared.Warning) {
	for _, w := range warnings {
		e.metrics.RecordWarning(ctx, w.Code)
	}
}

// eventSource is any aggregate that buffers domain events
type eventSource interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// drain moves buffered events out of the aggregates in order
func drain(sources ...eventSource) []shared.DomainEvent {
	var out []shared.DomainEvent
	for _, s := range sources {
		out = append(out, s.GetDomainEvents()...)
		s.ClearDomainEvents()
	}
	return out
}
