package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"
	"strconv"
)

const (
	// MinCodeDigits and MaxCodeDigits bound the one-time code length.
	MinCodeDigits = 6
	MaxCodeDigits = 10
)

// NewCode returns a uniformly distributed numeric code of exactly the given
// number of digits, drawn from crypto/rand. A 6-digit code is uniform over
// [100000, 999999]; the leading digit is never zero, so the string length
// always equals digits.
func NewCode(digits int) (string, error) {
	if digits < MinCodeDigits || digits > MaxCodeDigits {
		return "", errors.New("invalid code digits")
	}

	low := int64(1)
	for i := 1; i < digits; i++ {
		low *= 10
	}

	n, err := rand.Int(rand.Reader, big.NewInt(9*low))
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(low+n.Int64(), 10), nil
}

// HashCode returns the SHA-256 digest of a code. Only the digest is persisted;
// stores compare digests in constant time.
func HashCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}
