package user

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// OTPStore holds one-time codes keyed by email, expiring after a TTL.
// The store owns expiry; a code that outlived its TTL is simply absent.
type OTPStore interface {
	SaveOTP(ctx context.Context, email, code string, ttl time.Duration) error
	// CheckOTP reports whether code is the currently stored code for email.
	CheckOTP(ctx context.Context, email, code string) (bool, error)
	DeleteOTP(ctx context.Context, email string) error
}

// OTP purposes
const (
	OTPPurposeSignup = "signup"
	OTPPurposeReset  = "reset"
)

// GenerateOTP returns a random numeric code of the given length.
func GenerateOTP(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
