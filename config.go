package recovery

import (
	"errors"
	"time"
)

// CodeConfig defines a public type used by recovery APIs.
//
// CodeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CodeConfig struct {
	// Digits is the length of issued one-time codes (6–10).
	Digits int
	// TTL is the code lifetime. Hard-capped at 15 minutes.
	TTL time.Duration
}

// CredentialConfig defines a public type used by recovery APIs.
//
// CredentialConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CredentialConfig struct {
	// TTL is the recovery-credential lifetime. Hard-capped at 30 minutes.
	TTL           time.Duration
	SigningMethod string
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// PasswordConfig defines a public type used by recovery APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// PolicyConfig defines a public type used by recovery APIs.
//
// PolicyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PolicyConfig struct {
	// MinPasswordLength is the minimum accepted new-password length in runes.
	// The floor is 6.
	MinPasswordLength int
}

// StoreConfig defines a public type used by recovery APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	// OpTimeout bounds every code-store call. Deadline expiry surfaces as
	// ErrRecoveryUnavailable.
	OpTimeout time.Duration
	// RedisPrefix namespaces code keys when the redis store is used.
	RedisPrefix string
}

// NotifyConfig defines a public type used by recovery APIs.
//
// NotifyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type NotifyConfig struct {
	Enabled     bool
	Workers     int
	BufferSize  int
	SendTimeout time.Duration
}

// AuditConfig defines a public type used by recovery APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by recovery APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Config defines a public type used by recovery APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Code       CodeConfig
	Credential CredentialConfig
	Password   PasswordConfig
	Policy     PolicyConfig
	Store      StoreConfig
	Notify     NotifyConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Code: CodeConfig{
			Digits: 6,
			TTL:    10 * time.Minute,
		},
		Credential: CredentialConfig{
			TTL:           15 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "recovery",
			Leeway:        30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: PolicyConfig{
			MinPasswordLength: 6,
		},
		Store: StoreConfig{
			OpTimeout:   5 * time.Second,
			RedisPrefix: "otc",
		},
		Notify: NotifyConfig{
			Enabled:     true,
			Workers:     2,
			BufferSize:  64,
			SendTimeout: 5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	// -------- CODE --------
	if c.Code.Digits < 6 || c.Code.Digits > 10 {
		return errors.New("Code.Digits must be between 6 and 10")
	}
	if c.Code.TTL <= 0 {
		return errors.New("Code.TTL must be positive")
	}
	if c.Code.TTL > 15*time.Minute {
		return errors.New("Code.TTL must not exceed 15 minutes")
	}

	// -------- CREDENTIAL --------
	if c.Credential.TTL <= 0 {
		return errors.New("Credential.TTL must be positive")
	}
	if c.Credential.TTL > 30*time.Minute {
		return errors.New("Credential.TTL must not exceed 30 minutes")
	}
	if c.Credential.Leeway < 0 || c.Credential.Leeway > 2*time.Minute {
		return errors.New("Credential.Leeway must be between 0 and 2 minutes")
	}
	switch c.Credential.SigningMethod {
	case "hs256":
		if len(c.Credential.PrivateKey) == 0 {
			return errors.New("Credential.PrivateKey required for hs256")
		}
	case "ed25519":
		if len(c.Credential.PrivateKey) == 0 || len(c.Credential.PublicKey) == 0 {
			return errors.New("Credential key pair required for ed25519")
		}
	default:
		return errors.New("Credential.SigningMethod must be hs256 or ed25519")
	}

	// -------- POLICY --------
	if c.Policy.MinPasswordLength < 6 {
		return errors.New("Policy.MinPasswordLength must be at least 6")
	}

	// -------- STORE --------
	if c.Store.OpTimeout <= 0 || c.Store.OpTimeout > 30*time.Second {
		return errors.New("Store.OpTimeout must be between 1ns and 30 seconds")
	}

	// -------- NOTIFY --------
	if c.Notify.Enabled {
		if c.Notify.Workers < 1 || c.Notify.Workers > 64 {
			return errors.New("Notify.Workers must be between 1 and 64")
		}
		if c.Notify.BufferSize < 1 || c.Notify.BufferSize > 65536 {
			return errors.New("Notify.BufferSize must be between 1 and 65536")
		}
		if c.Notify.SendTimeout <= 0 {
			return errors.New("Notify.SendTimeout must be positive")
		}
	}

	// -------- AUDIT --------
	if c.Audit.Enabled && c.Audit.BufferSize < 1 {
		return errors.New("Audit.BufferSize must be positive")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Credential.PrivateKey = cloneBytes(cfg.Credential.PrivateKey)
	out.Credential.PublicKey = cloneBytes(cfg.Credential.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
