package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/thisismugil/edutech/core/user"
)

type otpEntry struct {
	code      string
	expiresAt time.Time
}

// OTPStore is the test double for the Redis-backed store.
type OTPStore struct {
	mutex sync.Mutex
	codes map[string]otpEntry
}

var _ user.OTPStore = (*OTPStore)(nil) // interface compliance check

func NewOTPStore() *OTPStore {
	return &OTPStore{codes: make(map[string]otpEntry)}
}

func (s *OTPStore) SaveOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.codes[email] = otpEntry{code: code, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *OTPStore) CheckOTP(ctx context.Context, email, code string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.codes[email]
	if !ok || time.Now().After(entry.expiresAt) {
		return false, nil
	}
	return entry.code == code, nil
}

func (s *OTPStore) DeleteOTP(ctx context.Context, email string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.codes, email)
	return nil
}
