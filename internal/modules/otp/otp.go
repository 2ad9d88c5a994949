// README: Pickup verification codes: 4 ASCII digits, fixed 15 minute expiry.
package otp

import (
	"crypto/rand"
	"time"
)

const (
	CodeLength = 4
	TTL        = 15 * time.Minute
)

type Result string

const (
	ResultValid    Result = "valid"
	ResultExpired  Result = "expired"
	ResultMismatch Result = "mismatch"
	ResultNotSet   Result = "not_set"
)

// Issue generates a fresh code and its expiry. Codes are scoped to one
// booking, so no global uniqueness is needed.
func Issue(now time.Time) (string, time.Time) {
	var b [CodeLength]byte
	_, _ = rand.Read(b[:])
	code := make([]byte, CodeLength)
	for i, v := range b {
		code[i] = '0' + v%10
	}
	return string(code), now.Add(TTL)
}

// Validate is a pure check; it never consumes the code. Expiry is strict:
// a code submitted exactly at expiresAt is still valid.
func Validate(code string, expiresAt time.Time, submitted string, now time.Time) Result {
	if code == "" {
		return ResultNotSet
	}
	if now.After(expiresAt) {
		return ResultExpired
	}
	if submitted != code {
		return ResultMismatch
	}
	return ResultValid
}
