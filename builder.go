package recovery

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/smartspend/recovery/credential"
	"github.com/smartspend/recovery/internal/stores"
	"github.com/smartspend/recovery/password"
)

// Builder assembles an [Engine]. Exactly one backing store must be supplied
// (WithDB or WithRedis) along with an [AccountProvider]; everything else has a
// default. Builders are not safe for concurrent use and must not be reused
// after Build.
type Builder struct {
	config     Config
	db         *gorm.DB
	redis      redis.UniversalClient
	accounts   AccountProvider
	dispatcher Dispatcher
	auditSink  AuditSink
	logger     *slog.Logger
	built      bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithDB selects the SQL code store. Superseded and consumed codes stay in the
// table as an audit trail.
func (b *Builder) WithDB(db *gorm.DB) *Builder {
	b.db = db
	return b
}

// WithRedis selects the Redis code store. Consumed codes are tombstoned until
// their natural expiry rather than kept indefinitely.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountProvider describes the withaccountprovider operation and its observable behavior.
//
// WithAccountProvider may return an error when input validation, dependency calls, or security checks fail.
// WithAccountProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAccountProvider(provider AccountProvider) *Builder {
	b.accounts = provider
	return b
}

// WithDispatcher describes the withdispatcher operation and its observable behavior.
//
// WithDispatcher may return an error when input validation, dependency calls, or security checks fail.
// WithDispatcher does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithDispatcher(d Dispatcher) *Builder {
	b.dispatcher = d
	return b
}

// WithAuditSink enables audit emission into the given sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already consumed")
	}
	b.built = true

	if b.db == nil && b.redis == nil {
		return nil, errors.New("a backing store is required: call WithDB or WithRedis")
	}
	if b.db != nil && b.redis != nil {
		return nil, errors.New("WithDB and WithRedis are mutually exclusive")
	}
	if b.accounts == nil {
		return nil, errors.New("an AccountProvider is required")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	var codeStore stores.CodeStore
	if b.db != nil {
		gormStore := stores.NewGormCodeStore(b.db)
		if err := gormStore.AutoMigrate(); err != nil {
			return nil, err
		}
		codeStore = gormStore
	} else {
		codeStore = stores.NewRedisCodeStore(b.redis, b.config.Store.RedisPrefix)
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	credentials, err := credential.NewManager(credential.Config{
		TTL:           b.config.Credential.TTL,
		SigningMethod: credential.SigningMethod(b.config.Credential.SigningMethod),
		PrivateKey:    b.config.Credential.PrivateKey,
		PublicKey:     b.config.Credential.PublicKey,
		Issuer:        b.config.Credential.Issuer,
		Leeway:        b.config.Credential.Leeway,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:      cloneConfig(b.config),
		codes:       codeStore,
		accounts:    b.accounts,
		hasher:      hasher,
		credentials: credentials,
		metrics:     NewMetrics(b.config.Metrics),
		logger:      logger,
	}

	e.audit = newAuditDispatcher(b.config.Audit, b.auditSink)

	dispatcher := b.dispatcher
	if dispatcher == nil && b.config.Notify.Enabled {
		dispatcher = LogDispatcher{Logger: logger}
	}
	e.notify = newNotifyPool(b.config.Notify, dispatcher, logger,
		func(n Notification, err error) {
			if err == nil {
				e.metricInc(MetricNotifyDelivered)
				return
			}
			e.metricInc(MetricNotifyFailed)
			e.emitAudit(context.Background(), auditEventNotificationFailure, false, n.AccountID, err, func() map[string]string {
				return map[string]string{
					"recipient": n.Recipient,
				}
			})
		},
		func(n Notification) {
			e.metricInc(MetricNotifyDropped)
		},
	)

	return e, nil
}
