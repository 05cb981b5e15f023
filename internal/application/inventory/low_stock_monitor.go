package inventory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultMonitorInterval = time.Minute

// LowStockMonitor periodically counts items below their minimum stock so the
// low-stock gauge stays current between queries.
type LowStockMonitor struct {
	service  *InventoryService
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewLowStockMonitor creates a monitor; interval <= 0 means one minute
func NewLowStockMonitor(service *InventoryService, interval time.Duration, logger *zap.Logger) *LowStockMonitor {
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	return &LowStockMonitor{service: service, interval: interval, logger: logger}
}

// Start runs one sweep immediately and then one per interval until Stop or
// ctx is cancelled. Starting a running monitor is a no-op.
func (m *LowStockMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true

	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.run(ctx, m.done)

	m.logger.Info("Low stock monitor started", zap.Duration("interval", m.interval))
}

// Stop cancels the loop and waits for the sweep in flight, bounded by ctx
func (m *LowStockMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.cancel()
	done := m.done
	m.mu.Unlock()

	select {
	case <-done:
		m.logger.Info("Low stock monitor stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("Low stock monitor stop timed out")
		return ctx.Err()
	}
}

func (m *LowStockMonitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *LowStockMonitor) sweep(ctx context.Context) {
	page, err := m.service.ListLowStock(ctx, ListQuery{Page: 1, PageSize: 1})
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("Low stock sweep failed", zap.Error(err))
		}
		return
	}
	m.logger.Debug("Low stock sweep", zap.Int64("below_minimum", page.Total))
}
