package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCodeStore keeps codes as rows in one_time_codes. Rows are never deleted:
// superseded and consumed codes stay behind as an audit trail, and the
// consumed flag is the CAS arbiter (UPDATE ... WHERE consumed = false with
// RowsAffected deciding the winner).
type GormCodeStore struct {
	db *gorm.DB
}

// NewGormCodeStore describes the newgormcodestore operation and its observable behavior.
//
// NewGormCodeStore may return an error when input validation, dependency calls, or security checks fail.
// NewGormCodeStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewGormCodeStore(db *gorm.DB) *GormCodeStore {
	return &GormCodeStore{db: db}
}

// AutoMigrate describes the automigrate operation and its observable behavior.
//
// AutoMigrate may return an error when input validation, dependency calls, or security checks fail.
// AutoMigrate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *GormCodeStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&CodeRecord{}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Issue describes the issue operation and its observable behavior.
//
// Issue may return an error when input validation, dependency calls, or security checks fail.
// Issue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *GormCodeStore) Issue(ctx context.Context, rec *CodeRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&CodeRecord{}).
			Where("account_id = ? AND purpose = ? AND consumed = ?", rec.AccountID, rec.Purpose, false).
			Updates(map[string]interface{}{
				"consumed":    true,
				"consumed_at": rec.IssuedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// Consume describes the consume operation and its observable behavior.
//
// Consume may return an error when input validation, dependency calls, or security checks fail.
// Consume does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *GormCodeStore) Consume(
	ctx context.Context,
	accountID, purpose string,
	codeHash [32]byte,
	now time.Time,
) (*CodeRecord, error) {
	var rec CodeRecord

	err := s.db.WithContext(ctx).
		Where("account_id = ? AND purpose = ? AND code_hash = ? AND consumed = ? AND expires_at > ?",
			accountID, purpose, EncodeCodeHash(codeHash), false, now).
		Order("issued_at DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	consumedAt := now
	res := s.db.WithContext(ctx).Model(&CodeRecord{}).
		Where("id = ? AND consumed = ?", rec.ID, false).
		Updates(map[string]interface{}{
			"consumed":    true,
			"consumed_at": consumedAt,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race to a concurrent consume or supersession.
		return nil, ErrCodeNotFound
	}

	rec.Consumed = true
	rec.ConsumedAt = &consumedAt
	return &rec, nil
}

// SupersedeActive describes the supersedeactive operation and its observable behavior.
//
// SupersedeActive may return an error when input validation, dependency calls, or security checks fail.
// SupersedeActive does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *GormCodeStore) SupersedeActive(
	ctx context.Context,
	accountID, purpose string,
	now time.Time,
) (int64, error) {
	res := s.db.WithContext(ctx).Model(&CodeRecord{}).
		Where("account_id = ? AND purpose = ? AND consumed = ?", accountID, purpose, false).
		Updates(map[string]interface{}{
			"consumed":    true,
			"consumed_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}

	return res.RowsAffected, nil
}
