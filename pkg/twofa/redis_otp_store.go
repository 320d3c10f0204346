package twofa

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultOtpKeyPrefix = "twofa:email_otp"

// consumeEmailOtpLua atomically validates and consumes an email OTP record.
// KEYS[1] = record key
// ARGV[1] = provided otp hash
// ARGV[2] = current unix time in milliseconds
// ARGV[3] = max attempts (0 = unlimited)
//
// Returns 1 when the code matched, 0 otherwise.
var consumeEmailOtpLua = redis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'otp_hash', 'expires_at')
if not rec[1] then
  return 0
end

if tonumber(rec[2]) <= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
  return 0
end

if rec[1] == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end

local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
local maxAttempts = tonumber(ARGV[3])
if maxAttempts > 0 and attempts >= maxAttempts then
  redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisEmailOtpStore shares email OTP records between all instances through Redis.
type RedisEmailOtpStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisEmailOtpStore(client redis.UniversalClient, prefix string) *RedisEmailOtpStore {
	if prefix == "" {
		prefix = DefaultOtpKeyPrefix
	}
	return &RedisEmailOtpStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *RedisEmailOtpStore) key(userID uuid.UUID) string {
	return s.prefix + ":" + userID.String()
}

func (s *RedisEmailOtpStore) Save(ctx context.Context, record EmailOtpRecord, ttl time.Duration) error {
	key := s.key(record.UserID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"otp_hash", record.OtpHash,
			"expires_at", record.ExpiresAt.UnixMilli(),
			"attempts", 0,
		)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save email otp: %w", err)
	}
	return nil
}

func (s *RedisEmailOtpStore) Consume(ctx context.Context, userID uuid.UUID, otpHash string, now time.Time, maxAttempts int) (bool, error) {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	res, err := consumeEmailOtpLua.Run(ctx, s.redis,
		[]string{s.key(userID)},
		otpHash,
		now.UnixMilli(),
		maxAttempts,
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume email otp: %w", err)
	}
	return res == 1, nil
}

func (s *RedisEmailOtpStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete email otp: %w", err)
	}
	return nil
}
