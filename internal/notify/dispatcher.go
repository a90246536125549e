package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/hardsoftkoop/hsk-vision/internal/metrics"
)

// DispatcherConfig tunes delivery.
type DispatcherConfig struct {
	// Timeout bounds each delivery.
	Timeout time.Duration
	// Interval is the minimum spacing between dispatched messages once the
	// burst is used up. Zero disables throttling.
	Interval time.Duration
	Burst    int
}

// Dispatcher fans messages out to notifiers on background goroutines.
type Dispatcher struct {
	cfg       DispatcherConfig
	notifiers []Notifier
	limiter   *rate.Limiter
	logger    *logrus.Entry

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher returns a dispatcher for the given notifiers.
func NewDispatcher(cfg DispatcherConfig, logger *logrus.Entry, notifiers ...Notifier) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Dispatcher{
		cfg:       cfg,
		notifiers: notifiers,
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		logger:    logger,
	}
}

// Len returns the number of configured notifiers.
func (d *Dispatcher) Len() int { return len(d.notifiers) }

// Dispatch starts delivery of msg and returns immediately. It reports false
// when the message was dropped by throttling or after Close.
func (d *Dispatcher) Dispatch(msg Message) bool {
	if len(d.notifiers) == 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	if !d.limiter.Allow() {
		d.logger.WithField("session", msg.Session).Debug("Notification throttled")
		for _, n := range d.notifiers {
			metrics.IncrementNotifications(n.Name(), metrics.OutcomeDropped)
		}
		return false
	}

	for _, n := range d.notifiers {
		d.wg.Add(1)
		go d.deliver(n, msg)
	}
	return true
}

func (d *Dispatcher) deliver(n Notifier, msg Message) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	log := d.logger.WithFields(logrus.Fields{
		"notifier": n.Name(),
		"camera":   msg.Camera,
		"session":  msg.Session,
	})
	if err := n.Notify(ctx, msg); err != nil {
		log.WithError(err).Warn("Notification failed")
		metrics.IncrementNotifications(n.Name(), metrics.OutcomeError)
		return
	}
	log.Debug("Notification delivered")
	metrics.IncrementNotifications(n.Name(), metrics.OutcomeSuccess)
}

// Close stops accepting messages and waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
