package stores

import (
	"context"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrCodeNotFound reports that no live code matched: wrong hash, expired,
	// already consumed, or never issued. Callers must not distinguish these.
	ErrCodeNotFound = errors.New("recovery code record not found")
	// ErrStoreUnavailable wraps backend failures (connectivity, timeouts,
	// corrupt records).
	ErrStoreUnavailable = errors.New("code store unavailable")
)

// CodeRecord is one issued one-time code. CodeHash holds the hex-encoded
// SHA-256 of the code; the plaintext never touches storage.
type CodeRecord struct {
	ID         string     `gorm:"primaryKey;size:36"`
	AccountID  string     `gorm:"size:64;index:idx_one_time_codes_account_purpose;not null"`
	Purpose    string     `gorm:"size:32;index:idx_one_time_codes_account_purpose;not null"`
	CodeHash   string     `gorm:"size:64;not null"`
	IssuedAt   time.Time  `gorm:"not null"`
	ExpiresAt  time.Time  `gorm:"not null"`
	Consumed   bool       `gorm:"not null;default:false"`
	ConsumedAt *time.Time
}

// TableName describes the tablename operation and its observable behavior.
func (CodeRecord) TableName() string {
	return "one_time_codes"
}

// Active reports whether the record can still win a Consume at the given
// instant.
func (r *CodeRecord) Active(now time.Time) bool {
	return r != nil && !r.Consumed && now.Before(r.ExpiresAt)
}

// CodeStore is the persistence contract for one-time codes.
//
// Issue atomically retires every live code for the record's (account, purpose)
// and persists the new one, so at most one code can win a later Consume.
//
// Consume is the single-winner conditional update: it locates a live record
// matching the hash (newest first) and flips it to consumed. Exactly one of
// two concurrent calls for the same code succeeds; the loser gets
// ErrCodeNotFound, indistinguishable from a wrong or expired code.
//
// SupersedeActive retires every remaining unconsumed code for the account and
// purpose and reports how many it retired. It is idempotent.
type CodeStore interface {
	Issue(ctx context.Context, rec *CodeRecord) error
	Consume(ctx context.Context, accountID, purpose string, codeHash [32]byte, now time.Time) (*CodeRecord, error)
	SupersedeActive(ctx context.Context, accountID, purpose string, now time.Time) (int64, error)
}

// EncodeCodeHash renders a code digest in the storage representation.
func EncodeCodeHash(hash [32]byte) string {
	return hex.EncodeToString(hash[:])
}
