// Package sequence issues gapless, period-scoped document numbers.
//
// Each period (a day for bills, a month for returns and generated purchase
// references) owns one counter row. The row is created on first use and
// incremented atomically inside the caller's transaction, so concurrent
// requests never observe the same value.
package sequence

import (
	"context"
	"fmt"
	"time"
)

// Period is the reset interval of a counter
type Period int

const (
	Daily Period = iota
	Monthly
)

// Kind names a numbered document family
type Kind struct {
	Prefix string
	Period Period
}

// PeriodKey returns the counter row key for the period containing t,
// e.g. "B-260131" or "RET-202601".
func (k Kind) PeriodKey(t time.Time) string {
	switch k.Period {
	case Monthly:
		return k.Prefix + "-" + t.Format("200601")
	default:
		return k.Prefix + "-" + t.Format("060102")
	}
}

// Format renders a document number from a period key and a sequence value
func Format(periodKey string, seq int64, padding int) string {
	return fmt.Sprintf("%s-%0*d", periodKey, padding, seq)
}

// CounterRepository increments the counter for periodKey, creating it at 1
// when absent, and returns the new value. Implementations must be atomic
// with respect to concurrent callers.
type CounterRepository interface {
	Next(ctx context.Context, periodKey string) (int64, error)
	Current(ctx context.Context, periodKey string) (int64, error)
}

// Generator formats numbers for one set of document kinds
type Generator struct {
	counters CounterRepository
	location *time.Location
	padding  int
}

// NewGenerator creates a generator; numbers are dated in loc
func NewGenerator(counters CounterRepository, loc *time.Location, padding int) *Generator {
	if loc == nil {
		loc = time.Local
	}
	if padding < 1 {
		padding = 4
	}
	return &Generator{counters: counters, location: loc, padding: padding}
}

// Next issues the next number of kind for the period containing now
func (g *Generator) Next(ctx context.Context, kind Kind, now time.Time) (string, error) {
	key := kind.PeriodKey(now.In(g.location))
	seq, err := g.counters.Next(ctx, key)
	if err != nil {
		return "", fmt.Errorf("next sequence for %s: %w", key, err)
	}
	return Format(key, seq, g.padding), nil
}
