package twofa

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// RepositoryConfig contains configuration for creating a credential repository
type RepositoryConfig struct {
	// Pool is required for PostgreSQL repositories
	Pool *pgxpool.Pool
	// DataDir is required for file-based repositories
	DataDir string
}

// NewCredentialRepository creates a new credential repository based on the persistence type
func NewCredentialRepository(persistenceType string, config RepositoryConfig) (CredentialRepository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresCredentialRepository(config.Pool), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		return NewFileCredentialRepository(config.DataDir)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file)", persistenceType)
	}
}

// OtpStoreConfig contains configuration for creating an email OTP store
type OtpStoreConfig struct {
	// Redis is required for redis stores
	Redis redis.UniversalClient
	// KeyPrefix namespaces redis keys; defaults to DefaultOtpKeyPrefix
	KeyPrefix string
}

// NewEmailOtpStore creates a new email OTP store based on the store type
func NewEmailOtpStore(storeType string, config OtpStoreConfig) (EmailOtpStore, error) {
	switch storeType {
	case "redis":
		if config.Redis == nil {
			return nil, fmt.Errorf("redis client required for redis otp store")
		}
		return NewRedisEmailOtpStore(config.Redis, config.KeyPrefix), nil
	case "memory", "inmem":
		return NewInMemoryEmailOtpStore(), nil
	default:
		return nil, fmt.Errorf("unsupported otp store type: %s (supported: redis, memory)", storeType)
	}
}
