// Package redisstore holds the Redis-backed ephemeral stores.
package redisstore

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/user"
)

// Open connects to Redis and verifies the connection.
func Open(conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// otpStore keeps one-time codes keyed by email. Expiry is delegated to
// Redis TTLs so a stale code simply stops existing.
type otpStore struct {
	client *redis.Client
}

var _ user.OTPStore = (*otpStore)(nil) // interface compliance check

func NewOTPStore(client *redis.Client) *otpStore {
	return &otpStore{client: client}
}

func otpKey(email string) string { return "otp:" + email }

func (s *otpStore) SaveOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, otpKey(email), code, ttl).Err(); err != nil {
		return errors.Wrap(err, "saving OTP")
	}
	return nil
}

func (s *otpStore) CheckOTP(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.client.Get(ctx, otpKey(email)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "finding OTP")
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1, nil
}

func (s *otpStore) DeleteOTP(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, otpKey(email)).Err(); err != nil {
		return errors.Wrap(err, "deleting OTP")
	}
	return nil
}
