package recovery

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Notification defines a public type used by recovery APIs.
//
// Notification instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Notification struct {
	AccountID string
	Recipient string
	Code      string
	Purpose   Purpose
	ExpiresAt time.Time
}

// Dispatcher delivers recovery notifications (email, SMS, queue — the engine
// does not care). Send runs on a worker goroutine under a bounded timeout;
// returned errors are logged, audited, and counted but never reach the caller
// of [Engine.RequestReset].
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// LogDispatcher is the fallback used when no transport is configured. It logs
// the code at WARN so operators can relay it out-of-band, and always reports
// success.
type LogDispatcher struct {
	Logger *slog.Logger
}

// Send describes the send operation and its observable behavior.
//
// Send may return an error when input validation, dependency calls, or security checks fail.
// Send does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d LogDispatcher) Send(ctx context.Context, n Notification) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "notification transport not configured; recovery code not delivered",
		slog.String("recipient", n.Recipient),
		slog.String("purpose", string(n.Purpose)),
		slog.String("code", n.Code),
	)
	return nil
}

// notifyPool is the fire-and-forget delivery pool. Enqueue never blocks: when
// the buffer is full the notification is dropped and counted. Close drains
// whatever is already buffered.
type notifyPool struct {
	cfg        NotifyConfig
	dispatcher Dispatcher
	logger     *slog.Logger
	onResult   func(n Notification, err error)
	onDrop     func(n Notification)
	ch         chan Notification
	done       chan struct{}
	wg         sync.WaitGroup
	dropped    atomic.Uint64
	closed     atomic.Bool
	closeOnce  sync.Once
}

func newNotifyPool(
	cfg NotifyConfig,
	dispatcher Dispatcher,
	logger *slog.Logger,
	onResult func(n Notification, err error),
	onDrop func(n Notification),
) *notifyPool {
	if !cfg.Enabled || dispatcher == nil {
		return nil
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &notifyPool{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
		onResult:   onResult,
		onDrop:     onDrop,
		ch:         make(chan Notification, cfg.BufferSize),
		done:       make(chan struct{}),
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.run()
	}

	return p
}

func (p *notifyPool) run() {
	defer p.wg.Done()

	for {
		select {
		case n := <-p.ch:
			p.deliver(n)
		case <-p.done:
			for {
				select {
				case n := <-p.ch:
					p.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (p *notifyPool) deliver(n Notification) {
	ctx := context.Background()
	cancel := func() {}
	if p.cfg.SendTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.cfg.SendTimeout)
	}
	defer cancel()

	err := p.dispatcher.Send(ctx, n)
	if err != nil {
		p.logger.Warn("recovery notification delivery failed",
			slog.String("recipient", n.Recipient),
			slog.String("purpose", string(n.Purpose)),
			slog.Any("error", err),
		)
	}
	if p.onResult != nil {
		p.onResult(n, err)
	}
}

// Enqueue describes the enqueue operation and its observable behavior.
//
// Enqueue may return an error when input validation, dependency calls, or security checks fail.
// Enqueue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *notifyPool) Enqueue(n Notification) {
	if p == nil || p.closed.Load() {
		return
	}

	select {
	case p.ch <- n:
	case <-p.done:
	default:
		p.dropped.Add(1)
		if p.onDrop != nil {
			p.onDrop(n)
		}
	}
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *notifyPool) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.done)
		p.wg.Wait()
	})
}

// Dropped describes the dropped operation and its observable behavior.
//
// Dropped may return an error when input validation, dependency calls, or security checks fail.
// Dropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *notifyPool) Dropped() uint64 {
	if p == nil {
		return 0
	}
	return p.dropped.Load()
}
