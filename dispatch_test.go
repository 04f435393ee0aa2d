package recovery

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type failingDispatcher struct {
	mu    sync.Mutex
	calls int
}

func (d *failingDispatcher) Send(context.Context, Notification) error {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return errors.New("smtp down")
}

func TestNotifyPoolDelivers(t *testing.T) {
	dispatcher := newChanDispatcher()
	pool := newNotifyPool(NotifyConfig{
		Enabled:     true,
		Workers:     2,
		BufferSize:  8,
		SendTimeout: time.Second,
	}, dispatcher, nil, nil, nil)
	defer pool.Close()

	pool.Enqueue(Notification{AccountID: "acct-1", Code: "123456"})

	n := waitNotification(t, dispatcher)
	if n.AccountID != "acct-1" || n.Code != "123456" {
		t.Fatalf("unexpected notification: %+v", n)
	}
}

func TestNotifyPoolFailureDoesNotPropagate(t *testing.T) {
	dispatcher := &failingDispatcher{}

	var mu sync.Mutex
	var failed int
	pool := newNotifyPool(NotifyConfig{
		Enabled:     true,
		Workers:     1,
		BufferSize:  8,
		SendTimeout: time.Second,
	}, dispatcher, nil, func(_ Notification, err error) {
		if err != nil {
			mu.Lock()
			failed++
			mu.Unlock()
		}
	}, nil)

	pool.Enqueue(Notification{AccountID: "acct-1"})
	pool.Close()

	mu.Lock()
	defer mu.Unlock()
	if failed != 1 {
		t.Fatalf("failure callback count = %d, want 1", failed)
	}
}

func TestNotifyPoolDropsWhenFull(t *testing.T) {
	blocker := make(chan struct{})
	slow := dispatcherFunc(func(context.Context, Notification) error {
		<-blocker
		return nil
	})

	var mu sync.Mutex
	var dropped int
	pool := newNotifyPool(NotifyConfig{
		Enabled:     true,
		Workers:     1,
		BufferSize:  1,
		SendTimeout: time.Second,
	}, slow, nil, nil, func(Notification) {
		mu.Lock()
		dropped++
		mu.Unlock()
	})

	// First notification occupies the worker, second fills the buffer,
	// the rest must drop.
	for i := 0; i < 5; i++ {
		pool.Enqueue(Notification{AccountID: "acct-1"})
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := dropped
		mu.Unlock()
		if n >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("dropped = %d, want at least 3", n)
		case <-time.After(10 * time.Millisecond):
		}
	}

	close(blocker)
	pool.Close()

	if pool.Dropped() < 3 {
		t.Fatalf("Dropped() = %d, want at least 3", pool.Dropped())
	}
}

func TestNotifyPoolDisabled(t *testing.T) {
	pool := newNotifyPool(NotifyConfig{Enabled: false}, newChanDispatcher(), nil, nil, nil)
	if pool != nil {
		t.Fatal("disabled config produced a pool")
	}

	// Nil pool methods are no-ops.
	pool.Enqueue(Notification{})
	pool.Close()
	if pool.Dropped() != 0 {
		t.Fatal("nil pool reported drops")
	}
}

func TestLogDispatcherLogsCode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	d := LogDispatcher{Logger: logger}
	if err := d.Send(context.Background(), Notification{
		Recipient: "alice@example.com",
		Code:      "123456",
		Purpose:   PurposePasswordReset,
	}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "123456") {
		t.Fatalf("log output missing code: %s", out)
	}
	if !strings.Contains(out, "alice@example.com") {
		t.Fatalf("log output missing recipient: %s", out)
	}
}

type dispatcherFunc func(ctx context.Context, n Notification) error

func (f dispatcherFunc) Send(ctx context.Context, n Notification) error {
	return f(ctx, n)
}
