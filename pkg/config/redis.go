package config

import (
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings for the shared email OTP store.
// A single address yields a plain client, several a cluster client.
type RedisConfig struct {
	Addrs     []string `env:"TWOFA_REDIS_ADDRS" env-separator:"," env-default:"localhost:6379"`
	Username  string   `env:"TWOFA_REDIS_USERNAME"`
	Password  string   `env:"TWOFA_REDIS_PASSWORD"`
	DB        int      `env:"TWOFA_REDIS_DB" env-default:"0"`
	KeyPrefix string   `env:"TWOFA_REDIS_KEY_PREFIX" env-default:"twofa:email_otp"`
}

// ToUniversalOptions converts the config to go-redis options
func (r RedisConfig) ToUniversalOptions() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:    r.Addrs,
		Username: r.Username,
		Password: r.Password,
		DB:       r.DB,
	}
}

// NewClient opens a client for the configured addresses
func (r RedisConfig) NewClient() redis.UniversalClient {
	return redis.NewUniversalClient(r.ToUniversalOptions())
}

func (r RedisConfig) validate() ValidationErrors {
	var c checks
	if len(r.Addrs) == 0 {
		c.fail("TWOFA_REDIS_ADDRS", "at least one address is required")
	}
	c.between("TWOFA_REDIS_DB", r.DB, 0, 15)
	return c.result()
}
