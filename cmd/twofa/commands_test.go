package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-2fa/pkg/notification"
	"github.com/tendant/simple-2fa/pkg/ratelimit"
	"github.com/tendant/simple-2fa/pkg/twofa"
)

func newTestApp(t *testing.T, opts ...twofa.TwoFaServiceOption) *app {
	t.Helper()
	repo, err := twofa.NewFileCredentialRepository(t.TempDir())
	require.NoError(t, err)

	outbox := &notification.MockNotifier{}
	nm, err := notification.NewNotificationManagerWithOptions(
		notification.WithNotifier(notification.EmailSystem, outbox),
		notification.WithDefaultTemplates(),
	)
	require.NoError(t, err)

	base := []twofa.TwoFaServiceOption{
		twofa.WithNotificationSender(nm),
		twofa.WithQRRenderer(nil),
	}
	svc := twofa.NewTwoFaService(repo, twofa.NewInMemoryEmailOtpStore(), append(base, opts...)...)
	return &app{svc: svc, outbox: outbox, out: &bytes.Buffer{}}
}

// runJSON runs a command and decodes what it printed.
func runJSON(t *testing.T, a *app, name string, args ...string) (int, map[string]any) {
	t.Helper()
	buf := a.out.(*bytes.Buffer)
	buf.Reset()
	code := run(context.Background(), a, name, args)

	var out map[string]any
	if buf.Len() > 0 {
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out), buf.String())
	}
	return code, out
}

// enableUser enrolls user through the CLI and returns the TOTP secret.
func enableUser(t *testing.T, a *app, user uuid.UUID) string {
	t.Helper()
	code, out := runJSON(t, a, "setup", user.String())
	require.Equal(t, 0, code)
	secret := out["secret"].(string)

	totp, err := twofa.TotpNow(secret, time.Now())
	require.NoError(t, err)
	code, out = runJSON(t, a, "enable", user.String(), totp)
	require.Equal(t, 0, code)
	require.Equal(t, true, out["enabled"])
	return secret
}

func TestRun_ExitCodes(t *testing.T) {
	a := newTestApp(t)
	user := uuid.New().String()

	assert.Equal(t, 2, run(context.Background(), a, "bogus", []string{user}))
	assert.Equal(t, 2, run(context.Background(), a, "status", nil))
	assert.Equal(t, 2, run(context.Background(), a, "status", []string{"not-a-uuid"}))
	assert.Equal(t, 2, run(context.Background(), a, "enable", []string{user}))

	assert.Equal(t, 0, run(context.Background(), a, "status", []string{user}))
	assert.Equal(t, 0, run(context.Background(), a, "verify", []string{user, "123456"}))
	assert.Equal(t, 1, run(context.Background(), a, "disable", []string{user, "123456"}))
	assert.Equal(t, 1, run(context.Background(), a, "admin-reset", []string{user, user}))
}

func TestRun_SetupStartsEnrollment(t *testing.T) {
	a := newTestApp(t)
	user := uuid.New()

	assert.Equal(t, 2, run(context.Background(), a, "setup", []string{user.String(), "-nope"}))

	code, out := runJSON(t, a, "setup", user.String())
	assert.Equal(t, 0, code)
	assert.NotEmpty(t, out["secret"])
	assert.Contains(t, out["provisioning_uri"], "otpauth://totp/")

	status, err := a.svc.GetStatus(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.False(t, status.Enabled)
}

func TestRun_EnablePrintsBackupCodes(t *testing.T) {
	a := newTestApp(t)
	user := uuid.New()

	code, out := runJSON(t, a, "setup", user.String())
	require.Equal(t, 0, code)
	totp, err := twofa.TotpNow(out["secret"].(string), time.Now())
	require.NoError(t, err)

	code, out = runJSON(t, a, "enable", user.String(), totp)
	require.Equal(t, 0, code)
	assert.Equal(t, true, out["enabled"])
	codes, ok := out["backup_codes"].([]any)
	require.True(t, ok)
	assert.Len(t, codes, twofa.DefaultBackupCodeCount)

	code, out = runJSON(t, a, "enable", user.String(), totp)
	assert.Equal(t, 1, code)
	assert.Equal(t, "TWO_FA_ALREADY_ENABLED", out["error"])
}

func TestRun_EmailOtpRoundTrip(t *testing.T) {
	a := newTestApp(t)
	user := uuid.New()
	secret := enableUser(t, a, user)

	totp, err := twofa.TotpNow(secret, time.Now())
	require.NoError(t, err)
	code, out := runJSON(t, a, "set-email", user.String(), "recovery@example.com", totp)
	require.Equal(t, 0, code)
	assert.Equal(t, true, out["updated"])

	code, out = runJSON(t, a, "send-otp", user.String())
	require.Equal(t, 0, code)
	assert.Equal(t, "r***y@example.com", out["masked_email"])
	assert.NotEmpty(t, out["expires_at"])
	captured, _ := out["captured_code"].(string)
	require.Len(t, captured, 6)

	sent, ok := a.outbox.Last(notification.TwofaEmailOtpNotice)
	require.True(t, ok)
	assert.Equal(t, sent.Data["Passcode"], captured)

	code, out = runJSON(t, a, "verify-otp", user.String(), captured)
	assert.Equal(t, 0, code)
	assert.Equal(t, true, out["valid"])

	code, out = runJSON(t, a, "verify-otp", user.String(), captured)
	assert.Equal(t, 0, code)
	assert.Equal(t, false, out["valid"], "codes are single use")
}

func TestRun_RateLimitedSendReportsRetry(t *testing.T) {
	limiter := ratelimit.NewRateLimiter(1, 1.0/60, 0)
	a := newTestApp(t, twofa.WithEmailOtpLimiter(limiter))
	user := uuid.New()
	secret := enableUser(t, a, user)

	totp, err := twofa.TotpNow(secret, time.Now())
	require.NoError(t, err)
	code, _ := runJSON(t, a, "set-email", user.String(), "recovery@example.com", totp)
	require.Equal(t, 0, code)

	code, _ = runJSON(t, a, "send-otp", user.String())
	require.Equal(t, 0, code)

	code, out := runJSON(t, a, "send-otp", user.String())
	assert.Equal(t, 1, code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", out["error"])
	details, ok := out["details"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, details["retry_after"])
	assert.Nil(t, out["captured_code"])
}

func TestRun_AdminResetArgumentOrder(t *testing.T) {
	a := newTestApp(t)
	admin, user := uuid.New(), uuid.New()
	enableUser(t, a, user)

	// user id first would make the user the acting admin of an unenrolled target
	code, out := runJSON(t, a, "admin-reset", user.String(), admin.String())
	assert.Equal(t, 1, code)
	assert.Equal(t, "TWO_FA_NOT_CONFIGURED", out["error"])

	status, err := a.svc.GetStatus(context.Background(), user)
	require.NoError(t, err)
	require.True(t, status.Enabled)

	code, out = runJSON(t, a, "admin-reset", admin.String(), user.String())
	assert.Equal(t, 0, code)
	assert.Equal(t, true, out["reset"])

	status, err = a.svc.GetStatus(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, status.Configured)
}

func TestRun_ServiceUnavailableExitsThree(t *testing.T) {
	a := &app{svc: twofa.NewNoOpTwoFactorService(), out: &bytes.Buffer{}}

	code, out := runJSON(t, a, "setup", uuid.New().String())
	assert.Equal(t, 3, code)
	assert.Equal(t, "UNAVAILABLE", out["error"])
}
