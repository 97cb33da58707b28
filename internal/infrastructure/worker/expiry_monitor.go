package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/application/dispatcher"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/event"
	"github.com/garyjia/delegate-desk/internal/domain/lifecycle"
)

var expiredDirectives = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "desk_expired_directives",
	Help: "Pending directives past their reply window at the last sweep.",
})

// ExpiredLister is the part of the request service the monitor reads
type ExpiredLister interface {
	ExpiredDirectives(ctx context.Context) ([]*entity.Request, error)
}

// ExpiryMonitor periodically looks for directives whose reply window closed
// and publishes directive.expired once per directive and process.
type ExpiryMonitor struct {
	lister     ExpiredLister
	dispatcher dispatcher.Dispatcher
	interval   time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	reported  map[int64]bool
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewExpiryMonitor creates a monitor sweeping every interval
func NewExpiryMonitor(lister ExpiredLister, d dispatcher.Dispatcher, interval time.Duration, logger *zap.Logger) *ExpiryMonitor {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ExpiryMonitor{
		lister:     lister,
		dispatcher: d,
		interval:   interval,
		logger:     logger,
		reported:   make(map[int64]bool),
	}
}

// Name returns the worker name
func (m *ExpiryMonitor) Name() string {
	return "ExpiryMonitor"
}

// Start runs one sweep immediately and then one per interval
func (m *ExpiryMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("expiry monitor is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.isRunning = true

	m.logger.Info("ExpiryMonitor started",
		zap.Duration("interval", m.interval),
		zap.Duration("directive_ttl", lifecycle.DirectiveTTL))

	go m.loop(loopCtx, m.done)
	return nil
}

// Stop cancels the loop and waits for the running sweep to finish
func (m *ExpiryMonitor) Stop() error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	m.cancel()
	done := m.done
	m.mu.Unlock()

	<-done
	return nil
}

func (m *ExpiryMonitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sweepAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepAndLog(ctx)
		}
	}
}

func (m *ExpiryMonitor) sweepAndLog(ctx context.Context) {
	if _, err := m.Sweep(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error("Expiry sweep failed", zap.Error(err))
	}
}

// Sweep lists expired directives, updates the gauge and publishes an event for
// each directive not reported before. It returns the newly reported directives.
func (m *ExpiryMonitor) Sweep(ctx context.Context) ([]*entity.Request, error) {
	expired, err := m.lister.ExpiredDirectives(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expired directives: %w", err)
	}
	expiredDirectives.Set(float64(len(expired)))

	m.mu.Lock()
	var fresh []*entity.Request
	for _, req := range expired {
		if m.reported[req.ID] {
			continue
		}
		m.reported[req.ID] = true
		fresh = append(fresh, req)
	}
	m.mu.Unlock()

	for _, req := range fresh {
		expiresAt, _ := lifecycle.ExpiresAt(req)
		m.logger.Info("Directive expired without reply",
			zap.String("request_number", req.RequestNumber),
			zap.Time("expired_at", expiresAt))

		if m.dispatcher != nil {
			evt := event.NewEvent(event.TypeDirectiveExpired, req.ID, req.RequestNumber, map[string]interface{}{
				event.KeyStatus: req.Status.String(),
			})
			if req.ToDelegateID != nil {
				evt.Payload[event.KeyDelegateID] = *req.ToDelegateID
			}
			m.dispatcher.DispatchAsync(ctx, evt)
		}
	}

	return fresh, nil
}
