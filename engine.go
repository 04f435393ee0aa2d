package recovery

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/smartspend/recovery/credential"
	"github.com/smartspend/recovery/internal/stores"
	"github.com/smartspend/recovery/password"
)

// Engine is the account-recovery engine. Build one with [Builder.Build] and
// share it: all methods are safe for concurrent use. Close releases the
// background audit and notification workers.
type Engine struct {
	config      Config
	codes       stores.CodeStore
	accounts    AccountProvider
	hasher      *password.Hasher
	credentials *credential.Manager
	audit       *auditDispatcher
	notify      *notifyPool
	metrics     *Metrics
	logger      *slog.Logger
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.notify.Close()
	e.audit.Close()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// NotifyDropped describes the notifydropped operation and its observable behavior.
//
// NotifyDropped may return an error when input validation, dependency calls, or security checks fail.
// NotifyDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) NotifyDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.notify.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// storeCtx bounds a code-store call with the configured operation timeout.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Store.OpTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.Store.OpTimeout)
}

// mapCodeStoreError translates store-level failures into the public error
// taxonomy. A missing, consumed, or expired record collapses into
// ErrCodeInvalid; everything else is an infrastructure failure.
func mapCodeStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrCodeNotFound),
		errors.Is(err, redis.Nil),
		errors.Is(err, gorm.ErrRecordNotFound):
		return ErrCodeInvalid
	default:
		return ErrRecoveryUnavailable
	}
}

func isCodeStoreNotFound(err error) bool {
	return errors.Is(err, stores.ErrCodeNotFound) ||
		errors.Is(err, redis.Nil) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}

const (
	enumerationDelayFloor  = 20 * time.Millisecond
	enumerationDelayJitter = 20 * time.Millisecond
)

// sleepEnumerationDelay pauses for a randomized 20-40ms so the unknown-account
// branch of RequestReset does not return measurably faster than the issuing
// branch.
func sleepEnumerationDelay(ctx context.Context) error {
	jitter, err := rand.Int(rand.Reader, big.NewInt(int64(enumerationDelayJitter)))
	if err != nil {
		jitter = big.NewInt(0)
	}

	timer := time.NewTimer(enumerationDelayFloor + time.Duration(jitter.Int64()))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
