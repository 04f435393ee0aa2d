package recovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// SQLite cannot take concurrent writers; a single connection keeps the
	// conditional-update race tests deterministic.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Credential.PrivateKey = []byte("test-signing-secret-0123456789")
	cfg.Credential.Leeway = 0
	// Keep test runs fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	return cfg
}

type mockAccountProvider struct {
	mu           sync.Mutex
	accounts     map[string]AccountRecord
	byIdentifier map[string]string
	hashes       map[string]string
	updateCalls  int
	updateErr    error
}

func newMockProvider(records ...AccountRecord) *mockAccountProvider {
	p := &mockAccountProvider{
		accounts:     make(map[string]AccountRecord),
		byIdentifier: make(map[string]string),
		hashes:       make(map[string]string),
	}
	for _, r := range records {
		p.accounts[r.AccountID] = r
		p.byIdentifier[r.Identifier] = r.AccountID
	}
	return p
}

func (p *mockAccountProvider) GetAccountByIdentifier(identifier string) (AccountRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.byIdentifier[identifier]
	if !ok {
		return AccountRecord{}, fmt.Errorf("no account for %q", identifier)
	}
	return p.accounts[id], nil
}

func (p *mockAccountProvider) UpdatePasswordHash(accountID, newHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.updateCalls++
	if p.updateErr != nil {
		return p.updateErr
	}
	if _, ok := p.accounts[accountID]; !ok {
		return ErrProviderAccountNotFound
	}
	p.hashes[accountID] = newHash
	return nil
}

func (p *mockAccountProvider) hashFor(accountID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hashes[accountID]
}

func (p *mockAccountProvider) updateCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateCalls
}

// chanDispatcher hands delivered notifications to the test goroutine.
type chanDispatcher struct {
	ch chan Notification
}

func newChanDispatcher() *chanDispatcher {
	return &chanDispatcher{ch: make(chan Notification, 16)}
}

func (d *chanDispatcher) Send(_ context.Context, n Notification) error {
	d.ch <- n
	return nil
}

func waitNotification(t *testing.T, d *chanDispatcher) Notification {
	t.Helper()

	select {
	case n := <-d.ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return Notification{}
	}
}

func expectNoNotification(t *testing.T, d *chanDispatcher) {
	t.Helper()

	select {
	case n := <-d.ch:
		t.Fatalf("unexpected notification for account %q", n.AccountID)
	case <-time.After(150 * time.Millisecond):
	}
}

func newTestEngine(t *testing.T, provider AccountProvider, dispatcher Dispatcher) *Engine {
	t.Helper()

	builder := New().
		WithConfig(testConfig()).
		WithDB(newTestDB(t)).
		WithAccountProvider(provider)
	if dispatcher != nil {
		builder = builder.WithDispatcher(dispatcher)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newTestRedisEngine(t *testing.T, provider AccountProvider, dispatcher Dispatcher) (*miniredis.Miniredis, *Engine) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	builder := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithAccountProvider(provider)
	if dispatcher != nil {
		builder = builder.WithDispatcher(dispatcher)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return mr, engine
}

// wrongCode returns a syntactically valid code guaranteed to differ from the
// issued one.
func wrongCode(code string) string {
	digit := code[0]
	if digit == '9' {
		digit = '1'
	} else {
		digit++
	}
	return string(digit) + code[1:]
}
