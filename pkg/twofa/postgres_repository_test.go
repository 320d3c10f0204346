package twofa

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("../../migrations", "twofa.sql")),
		postgres.WithDatabase("twofa_db"),
		postgres.WithUsername("twofa"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestPostgresCredentialRepository(t *testing.T) {
	pool := setupTestDatabase(t)
	repo := NewPostgresCredentialRepository(pool)
	ctx := context.Background()
	userID := uuid.New()

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetCredential(ctx, userID)
		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})

	t.Run("insert and update", func(t *testing.T) {
		require.NoError(t, repo.WithCredentialTx(ctx, userID, func(tx CredentialTx) error {
			tx.Put(testCredential(userID))
			return nil
		}))

		cred, err := repo.GetCredential(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, userID, cred.UserID)
		assert.False(t, cred.IsEnabled)
		assert.Equal(t, []string{"hash1", "hash2"}, cred.BackupCodes)
		assert.Empty(t, cred.RecoveryEmail)
		assert.Nil(t, cred.EnabledAt)

		enabledAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		require.NoError(t, repo.WithCredentialTx(ctx, userID, func(tx CredentialTx) error {
			cred, ok := tx.Get()
			require.True(t, ok)
			cred.IsEnabled = true
			cred.EnabledAt = &enabledAt
			cred.RecoveryEmail = "alice@example.com"
			tx.Put(cred)
			return nil
		}))

		cred, err = repo.GetCredential(ctx, userID)
		require.NoError(t, err)
		assert.True(t, cred.IsEnabled)
		assert.Equal(t, "alice@example.com", cred.RecoveryEmail)
		require.NotNil(t, cred.EnabledAt)
		assert.True(t, enabledAt.Equal(*cred.EnabledAt))
	})

	t.Run("serialized consumption", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		consumed := 0
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = repo.WithCredentialTx(ctx, userID, func(tx CredentialTx) error {
					cred, _ := tx.Get()
					for i, h := range cred.BackupCodes {
						if h == "hash1" {
							cred.BackupCodes = append(cred.BackupCodes[:i], cred.BackupCodes[i+1:]...)
							tx.Put(cred)
							mu.Lock()
							consumed++
							mu.Unlock()
							return nil
						}
					}
					return nil
				})
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, consumed)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.WithCredentialTx(ctx, userID, func(tx CredentialTx) error {
			tx.Delete()
			return nil
		}))
		_, err := repo.GetCredential(ctx, userID)
		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})
}
