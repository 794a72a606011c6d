package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/utils"
)

// Observer receives delivery outcomes. *monitoring.MetricsCollector
// satisfies it.
type Observer interface {
	RecordNotificationSent()
	RecordNotificationDropped()
	RecordNotificationFailed()
}

type nopObserver struct{}

func (nopObserver) RecordNotificationSent()    {}
func (nopObserver) RecordNotificationDropped() {}
func (nopObserver) RecordNotificationFailed()  {}

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Dispatcher delivers warnings on a fixed pool of workers. Submissions that
// find the queue full are dropped and counted; failed sends are logged and
// not retried.
type Dispatcher struct {
	sender  Sender
	obs     Observer
	timeout time.Duration
	queue   chan Warning

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts cfg.Workers workers.
func NewDispatcher(sender Sender, cfg DispatcherConfig, obs Observer) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = config.DefaultNotifyWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = config.DefaultNotifyQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultNotifyTimeout
	}
	if obs == nil {
		obs = nopObserver{}
	}
	d := &Dispatcher{
		sender:  sender,
		obs:     obs,
		timeout: cfg.Timeout,
		queue:   make(chan Warning, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Submit enqueues w without blocking. It returns false if the warning was
// dropped.
func (d *Dispatcher) Submit(w Warning) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.obs.RecordNotificationDropped()
		return false
	}
	select {
	case d.queue <- w:
		return true
	default:
		d.obs.RecordNotificationDropped()
		log.Warn().Str("email", utils.MaskEmail(w.Email)).Msg("notification queue full, dropping warning")
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for w := range d.queue {
		d.deliver(w)
	}
}

func (d *Dispatcher) deliver(w Warning) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, w); err != nil {
		d.obs.RecordNotificationFailed()
		log.Error().
			Err(err).
			Str("sender", d.sender.Name()).
			Str("email", utils.MaskEmail(w.Email)).
			Msg("threshold notification failed")
		return
	}
	d.obs.RecordNotificationSent()
	log.Info().
		Str("sender", d.sender.Name()).
		Str("email", utils.MaskEmail(w.Email)).
		Int("used", w.Used).
		Int("limit", w.DailyLimit).
		Msg("threshold notification sent")
}

// Close stops accepting warnings and waits for queued ones to be delivered
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
