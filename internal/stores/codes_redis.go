package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	codeRecordVersionV1 = 1
	codeRecordConsumed  = 1 << 0
)

// RedisCodeStore keeps one binary record per (account, purpose) key with a TTL
// matching the code expiry. Issuing overwrites the key, which supersedes any
// prior code. Consumed records are kept as tombstones until natural expiry so
// a replayed code fails the same way as a wrong one. There is no long-term
// audit trail in this backend.
type RedisCodeStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisCodeStore describes the newrediscodestore operation and its observable behavior.
//
// NewRedisCodeStore may return an error when input validation, dependency calls, or security checks fail.
// NewRedisCodeStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedisCodeStore(redisClient redis.UniversalClient, prefix string) *RedisCodeStore {
	if prefix == "" {
		prefix = "otc"
	}
	return &RedisCodeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisCodeStore) key(accountID, purpose string) string {
	return s.prefix + ":" + accountID + ":" + purpose
}

// Issue describes the issue operation and its observable behavior.
//
// Issue may return an error when input validation, dependency calls, or security checks fail.
// Issue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisCodeStore) Issue(ctx context.Context, rec *CodeRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	ttl := rec.ExpiresAt.Sub(rec.IssuedAt)
	if ttl <= 0 {
		return fmt.Errorf("%w: non-positive code ttl", ErrStoreUnavailable)
	}

	encoded, err := encodeCodeRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.redis.Set(ctx, s.key(rec.AccountID, rec.Purpose), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// Consume describes the consume operation and its observable behavior.
//
// Consume may return an error when input validation, dependency calls, or security checks fail.
// Consume does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisCodeStore) Consume(
	ctx context.Context,
	accountID, purpose string,
	codeHash [32]byte,
	now time.Time,
) (*CodeRecord, error) {
	const maxRetries = 4
	key := s.key(accountID, purpose)

	var provided [32]byte
	copy(provided[:], codeHash[:])

	for i := 0; i < maxRetries; i++ {
		var matched *CodeRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, storedHash, err := decodeCodeRecord(data)
			if err != nil {
				return err
			}

			if record.Consumed {
				return ErrCodeNotFound
			}
			if !now.Before(record.ExpiresAt) {
				return ErrCodeNotFound
			}
			if subtle.ConstantTimeCompare(storedHash[:], provided[:]) != 1 {
				return ErrCodeNotFound
			}

			consumedAt := now
			record.Consumed = true
			record.ConsumedAt = &consumedAt

			ttl := time.Until(record.ExpiresAt)
			if ttl <= 0 {
				return ErrCodeNotFound
			}

			updated, err := encodeCodeRecord(record)
			if err != nil {
				return err
			}

			// Tombstone instead of delete: a replay during the residual TTL
			// must fail exactly like a wrong code.
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			if err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), errors.Is(err, ErrCodeNotFound):
				return nil, ErrCodeNotFound
			default:
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}

		return matched, nil
	}

	return nil, ErrCodeNotFound
}

// SupersedeActive describes the supersedeactive operation and its observable behavior.
//
// SupersedeActive may return an error when input validation, dependency calls, or security checks fail.
// SupersedeActive does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisCodeStore) SupersedeActive(
	ctx context.Context,
	accountID, purpose string,
	now time.Time,
) (int64, error) {
	const maxRetries = 4
	key := s.key(accountID, purpose)

	for i := 0; i < maxRetries; i++ {
		var superseded int64

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, _, err := decodeCodeRecord(data)
			if err != nil {
				return err
			}

			if record.Consumed {
				return nil
			}

			ttl := time.Until(record.ExpiresAt)
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			consumedAt := now
			record.Consumed = true
			record.ConsumedAt = &consumedAt

			updated, err := encodeCodeRecord(record)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			if err != nil {
				return err
			}

			superseded = 1
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return 0, nil
			}
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		return superseded, nil
	}

	return 0, nil
}

func encodeCodeRecord(record *CodeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(codeRecordVersionV1)

	var flags byte
	if record.Consumed {
		flags |= codeRecordConsumed
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt.Unix()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt.Unix()); err != nil {
		return nil, err
	}
	var consumedUnix int64
	if record.ConsumedAt != nil {
		consumedUnix = record.ConsumedAt.Unix()
	}
	if err := binary.Write(&buf, binary.BigEndian, consumedUnix); err != nil {
		return nil, err
	}

	for _, field := range []string{record.ID, record.AccountID, record.Purpose} {
		if len(field) > 65535 {
			return nil, errors.New("code record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	hash, err := hex.DecodeString(record.CodeHash)
	if err != nil || len(hash) != 32 {
		return nil, errors.New("invalid code record hash")
	}
	buf.Write(hash)

	return buf.Bytes(), nil
}

func decodeCodeRecord(data []byte) (*CodeRecord, [32]byte, error) {
	var hash [32]byte
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, hash, err
	}
	if version != codeRecordVersionV1 {
		return nil, hash, errors.New("invalid code record version")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, hash, err
	}

	var issuedUnix, expiresUnix, consumedUnix int64
	if err := binary.Read(reader, binary.BigEndian, &issuedUnix); err != nil {
		return nil, hash, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresUnix); err != nil {
		return nil, hash, err
	}
	if err := binary.Read(reader, binary.BigEndian, &consumedUnix); err != nil {
		return nil, hash, err
	}

	fields := make([]string, 3)
	for i := range fields {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, hash, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, hash, err
		}
		fields[i] = string(raw)
	}

	if _, err := io.ReadFull(reader, hash[:]); err != nil {
		return nil, hash, err
	}

	record := &CodeRecord{
		ID:        fields[0],
		AccountID: fields[1],
		Purpose:   fields[2],
		CodeHash:  hex.EncodeToString(hash[:]),
		IssuedAt:  time.Unix(issuedUnix, 0),
		ExpiresAt: time.Unix(expiresUnix, 0),
		Consumed:  flags&codeRecordConsumed != 0,
	}
	if consumedUnix != 0 {
		consumedAt := time.Unix(consumedUnix, 0)
		record.ConsumedAt = &consumedAt
	}

	return record, hash, nil
}
