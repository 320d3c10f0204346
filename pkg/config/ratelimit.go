package config

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-2fa/pkg/ratelimit"
)

// RateLimitConfig throttles email OTP dispatch per user.
// In memory the defaults allow a burst of 3 sends, then one more every 20 seconds.
// With the redis OTP store the limit is Capacity sends per Window, shared by every instance.
type RateLimitConfig struct {
	Enabled    bool          `env:"TWOFA_EMAIL_OTP_RATE_LIMIT_ENABLED" env-default:"true"`
	Capacity   int           `env:"TWOFA_EMAIL_OTP_RATE_LIMIT_CAPACITY" env-default:"3"`
	RefillRate float64       `env:"TWOFA_EMAIL_OTP_RATE_LIMIT_REFILL_RATE" env-default:"0.05"` // tokens per second
	BucketTTL  time.Duration `env:"TWOFA_EMAIL_OTP_RATE_LIMIT_BUCKET_TTL" env-default:"1h"`
	Window     time.Duration `env:"TWOFA_EMAIL_OTP_RATE_LIMIT_WINDOW" env-default:"1m"`
}

// SendKeyPrefix is appended to the OTP key prefix for the shared send counters
const SendKeyPrefix = ":send"

// NewRateLimiter builds the in-memory limiter, or returns nil when limiting is off.
// Callers own the limiter and should Close it.
func (r RateLimitConfig) NewRateLimiter() *ratelimit.RateLimiter {
	if !r.Enabled {
		return nil
	}
	return ratelimit.NewRateLimiter(r.Capacity, r.RefillRate, r.BucketTTL)
}

// NewRedisLimiter builds the shared limiter with counters under otpKeyPrefix:send,
// or returns nil when limiting is off.
func (r RateLimitConfig) NewRedisLimiter(client redis.UniversalClient, otpKeyPrefix string) *ratelimit.RedisLimiter {
	if !r.Enabled {
		return nil
	}
	return ratelimit.NewRedisLimiter(client, otpKeyPrefix+SendKeyPrefix, r.Capacity, r.Window)
}

func (r RateLimitConfig) validate() ValidationErrors {
	if !r.Enabled {
		return nil
	}
	var c checks
	c.atLeast("TWOFA_EMAIL_OTP_RATE_LIMIT_CAPACITY", r.Capacity, 1)
	c.positiveRate("TWOFA_EMAIL_OTP_RATE_LIMIT_REFILL_RATE", r.RefillRate)
	c.positiveDuration("TWOFA_EMAIL_OTP_RATE_LIMIT_BUCKET_TTL", r.BucketTTL)
	c.positiveDuration("TWOFA_EMAIL_OTP_RATE_LIMIT_WINDOW", r.Window)
	return c.result()
}
