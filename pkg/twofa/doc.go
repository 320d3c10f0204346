// Package twofa provides two-factor authentication (2FA) for simple-2fa.
//
// Users enroll an authenticator app (TOTP, RFC 6238), receive single-use backup
// codes, can register a recovery email for an emailed fallback code, and can be
// reset by an administrator.
//
// # Overview
//
// The twofa package provides:
//   - TOTP enrollment with otpauth:// provisioning URI and PNG QR code
//   - TOTP verification with configurable clock-drift window
//   - Hashed, single-use backup codes (optionally HMAC keyed)
//   - Email OTP fallback with expiry, attempt limit and optional send throttling
//   - Administrator reset with user notification
//   - File and PostgreSQL credential repositories
//   - In-memory and Redis email OTP stores
//
// # State
//
// Each user is in one of three states:
//
//	not configured  --Setup-->  pending  --VerifyAndEnable-->  enabled
//	      ^                                                      |
//	      +------------------- Disable / AdminReset -------------+
//
// A pending credential is a stored secret that has not been confirmed. It is
// never enforced: VerifyCode passes for users that are not enabled.
//
// # Basic Usage
//
//	repo, err := twofa.NewCredentialRepository("postgres", twofa.RepositoryConfig{Pool: pool})
//	otpStore, err := twofa.NewEmailOtpStore("redis", twofa.OtpStoreConfig{Redis: rdb})
//
//	service := twofa.NewTwoFaService(repo, otpStore,
//		twofa.WithIssuer("MyApp"),
//		twofa.WithNotificationSender(notificationManager),
//		twofa.WithUserResolver(resolver),
//		twofa.WithCodeHasher(twofa.NewCodeHasher(os.Getenv("TWOFA_CODE_HASH_KEY"))),
//	)
//
//	// Enrollment
//	setup, err := service.Setup(ctx, userID)
//	// show setup.QRCodePNG or setup.ProvisioningURI to the user
//	backupCodes, err := service.VerifyAndEnable(ctx, userID, codeFromApp)
//	// show backupCodes once; only hashes are stored
//
//	// Sign-in
//	ok, err := service.VerifyCode(ctx, userID, presentedCode)
//
// # Codes
//
// A presented code is classified by format before verification. Six digits are
// a TOTP code. A code of the backup length drawn from the backup alphabet
// (hyphens, spaces and case ignored) is a backup code. TOTP codes may be used
// repeatedly inside their window; backup codes and email codes are consumed on
// first successful use.
//
// RegenerateBackupCodes and SetRecoveryEmail accept TOTP codes only and return
// ErrTotpRequired for a backup code.
//
// # Email Fallback
//
//	dispatch, err := service.SendEmailOtp(ctx, userID)
//	if dispatch.DeliveryWarning != "" {
//		// code stored, email failed; the user can ask for a new one
//	}
//	ok, err := service.VerifyEmailOtp(ctx, userID, codeFromEmail)
//
// Sending again replaces the outstanding code. Codes expire after ten minutes by
// default and are destroyed after five wrong guesses. Use the Redis store when
// more than one instance serves requests.
//
// # Errors
//
// Precondition failures are *errors.Error values from pkg/errors and can be
// matched with errors.Is against ErrAlreadyEnabled, ErrNotConfigured,
// ErrNotEnabled, ErrInvalidCode, ErrTotpRequired, ErrRecoveryEmailNotSet,
// ErrInvalidEmail, ErrSelfReset and ErrRateLimited. Wrong codes in VerifyCode
// and VerifyEmailOtp are reported as false, not as errors.
package twofa
