package twofa

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCredentialRepository(t *testing.T) {
	repo, err := NewCredentialRepository("file", RepositoryConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileCredentialRepository{}, repo)

	_, err = NewCredentialRepository("file", RepositoryConfig{})
	assert.Error(t, err)

	_, err = NewCredentialRepository("postgres", RepositoryConfig{})
	assert.Error(t, err)

	_, err = NewCredentialRepository("mongo", RepositoryConfig{})
	assert.Error(t, err)
}

func TestNewEmailOtpStore(t *testing.T) {
	store, err := NewEmailOtpStore("memory", OtpStoreConfig{})
	require.NoError(t, err)
	assert.IsType(t, &InMemoryEmailOtpStore{}, store)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store, err = NewEmailOtpStore("redis", OtpStoreConfig{Redis: client, KeyPrefix: "test"})
	require.NoError(t, err)
	assert.IsType(t, &RedisEmailOtpStore{}, store)

	_, err = NewEmailOtpStore("redis", OtpStoreConfig{})
	assert.Error(t, err)

	_, err = NewEmailOtpStore("memcached", OtpStoreConfig{})
	assert.Error(t, err)
}

func TestNoOpTwoFactorService(t *testing.T) {
	svc := NewNoOpTwoFactorService()
	ctx := context.Background()

	status, err := svc.GetStatus(ctx, testUserID)
	require.NoError(t, err)
	assert.False(t, status.Configured)

	ok, err := svc.VerifyCode(ctx, testUserID, "000000")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Setup(ctx, testUserID)
	assert.ErrorIs(t, err, ErrTwoFactorUnavailable)
	assert.ErrorIs(t, svc.Disable(ctx, testUserID, "000000"), ErrTwoFactorUnavailable)
	assert.ErrorIs(t, svc.AdminReset(ctx, testAdminID, testUserID), ErrTwoFactorUnavailable)
}
