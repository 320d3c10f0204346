package twofa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-2fa/pkg/errors"
	"github.com/tendant/simple-2fa/pkg/identity"
	"github.com/tendant/simple-2fa/pkg/notification"
	"github.com/tendant/simple-2fa/pkg/utils"
)

type TwoFactorService interface {
	GetStatus(ctx context.Context, userID uuid.UUID) (Status, error)
	Setup(ctx context.Context, userID uuid.UUID) (SetupResult, error)
	VerifyAndEnable(ctx context.Context, userID uuid.UUID, code string) ([]string, error)
	VerifyCode(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	Disable(ctx context.Context, userID uuid.UUID, code string) error
	RegenerateBackupCodes(ctx context.Context, userID uuid.UUID, code string) ([]string, error)
	SetRecoveryEmail(ctx context.Context, userID uuid.UUID, email, code string) error
	SendEmailOtp(ctx context.Context, userID uuid.UUID) (EmailOtpDispatch, error)
	VerifyEmailOtp(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	AdminReset(ctx context.Context, actingAdmin, targetUser uuid.UUID) error
}

// TwoFaService implements TwoFactorService. Every credential mutation runs inside
// a CredentialRepository transaction; collaborators are only called outside it.
type TwoFaService struct {
	repo     CredentialRepository
	otpStore EmailOtpStore

	issuer              string
	totpWindow          uint
	emailOtpTTL         time.Duration
	backupCodeCount     int
	backupCodeLength    int
	maxEmailOtpAttempts int

	hasher   CodeHasher
	notifier NotificationSender
	users    identity.Resolver
	qr       QRRenderer
	limiter  RateLimiter
	validate *validator.Validate
	now      func() time.Time
}

func NewTwoFaService(repo CredentialRepository, otpStore EmailOtpStore, opts ...TwoFaServiceOption) *TwoFaService {
	s := &TwoFaService{
		repo:                repo,
		otpStore:            otpStore,
		issuer:              DefaultIssuer,
		totpWindow:          DefaultTotpWindow,
		emailOtpTTL:         DefaultEmailOtpTTL,
		backupCodeCount:     DefaultBackupCodeCount,
		backupCodeLength:    DefaultBackupCodeLength,
		maxEmailOtpAttempts: DefaultMaxEmailOtpAttempts,
		qr:                  NewPNGQRRenderer(DefaultQRSize),
		validate:            validator.New(),
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TwoFaService) clock() time.Time {
	return s.now().UTC()
}

func (s *TwoFaService) GetStatus(ctx context.Context, userID uuid.UUID) (Status, error) {
	cred, err := s.repo.GetCredential(ctx, userID)
	if errors.Is(err, ErrCredentialNotFound) {
		return Status{}, nil
	}
	if err != nil {
		slog.Error("Failed to get 2FA credential", "userID", userID, "error", err)
		return Status{}, fmt.Errorf("failed to get 2FA status: %w", err)
	}

	createdAt := cred.CreatedAt
	status := Status{
		Configured:           true,
		Enabled:              cred.IsEnabled,
		HasBackupCodes:       len(cred.BackupCodes) > 0,
		BackupCodesRemaining: len(cred.BackupCodes),
		HasRecoveryEmail:     cred.RecoveryEmail != "",
		CreatedAt:            &createdAt,
		EnabledAt:            cred.EnabledAt,
		LastUsedAt:           cred.LastUsedAt,
	}
	if cred.RecoveryEmail != "" {
		status.RecoveryEmailMasked = utils.MaskEmail(cred.RecoveryEmail)
	}
	return status, nil
}

// Setup starts (or restarts) enrollment with a fresh secret. An existing pending
// enrollment is replaced; an enabled one must be disabled first.
func (s *TwoFaService) Setup(ctx context.Context, userID uuid.UUID) (SetupResult, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return SetupResult{}, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	uri, err := ProvisioningURI(secret, s.accountLabel(ctx, userID), s.issuer)
	if err != nil {
		return SetupResult{}, err
	}

	err = s.repo.WithCredentialTx(ctx, userID, func(tx CredentialTx) error {
		if cred, ok := tx.Get(); ok && cred.IsEnabled {
			return ErrAlreadyEnabled
		}
		tx.Put(TwoFactorCredential{
			UserID:    userID,
			Secret:    secret,
			CreatedAt: s.clock(),
		})
		return nil
	})
	if err != nil {
		return SetupResult{}, s.txError("set up 2FA", userID, err)
	}

	result := SetupResult{Secret: secret, ProvisioningURI: uri}
	if s.qr != nil {
		png, err := s.qr.RenderQR(uri)
		if err != nil {
			slog.Warn("Failed to render QR code", "userID", userID, "error", err)
		} else {
			result.QRCodePNG = png
		}
	}

	slog.Info("Two-factor setup started", "userID", userID)
	return result, nil
}

// VerifyAndEnable confirms enrollment with a TOTP code and returns the plaintext
// backup codes. They are not retrievable afterwards.
func (s *TwoFaService) VerifyAndEnable(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	codes, hashes, err := s.newBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.repo.WithCredentialTx(ctx, userID, func(tx CredentialTx) error {
		cred, ok := tx.Get()
		if !ok {
			return ErrNotConfigured
		}
		if cred.IsEnabled {
			return ErrAlreadyEnabled
		}

		now := s.clock()
		if ClassifyCode(code, s.backupCodeLength) != CodeKindTotp || !TotpVerify(cred.Secret, NormalizeCode(code), now, s.totpWindow) {
			return ErrInvalidCode
		}

		cred.IsEnabled = true
		cred.EnabledAt = &now
		cred.LastUsedAt = &now
		cred.BackupCodes = hashes
		tx.Put(cred)
		return nil
	})
	if err != nil {
		return nil, s.txError("enable 2FA", userID, err)
	}

	slog.Info("Two-factor authentication enabled", "userID", userID)
	return codes, nil
}

// VerifyCode checks a second factor. Users without an enabled credential pass.
// Six-digit codes are checked as TOTP only; backup-format codes are checked
// against the stored hashes and consumed on match. TOTP codes stay valid for
// their whole window and may be presented more than once.
func (s *TwoFaService) VerifyCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	cred, err := s.repo.GetCredential(ctx, userID)
	if errors.Is(err, ErrCredentialNotFound) {
		return true, nil
	}
	if err != nil {
		slog.Error("Failed to get 2FA credential", "userID", userID, "error", err)
		return false, fmt.Errorf("failed to verify 2FA code: %w", err)
	}
	if !cred.IsEnabled {
		return true, nil
	}

	kind := ClassifyCode(code, s.backupCodeLength)
	if kind == CodeKindInvalid {
		slog.Info("Two-factor verification failed", "userID", userID, "reason", "malformed code")
		return false, nil
	}

	verified := false
	err = s.repo.WithCredentialTx(ctx, userID, func(tx CredentialTx) error {
		cred, ok := tx.Get()
		if !ok || !cred.IsEnabled {
			// Disabled since the first read
			verified = true
			return nil
		}

		updated, ok := s.matchCode(cred, code, kind)
		if !ok {
			return nil
		}
		tx.Put(updated)
		verified = true
		return nil
	})
	if err != nil {
		slog.Error("Failed to verify 2FA code", "userID", userID, "error", err)
		return false, fmt.Errorf("failed to verify 2FA code: %w", err)
	}

	if verified {
		slog.Debug("Two-factor verification succeeded", "userID", userID, "kind", kind)
	} else {
		slog.Info("Two-factor verification failed", "userID", userID, "kind", kind)
	}
	return verified, nil
}

// Disable removes the credential after a successful TOTP or backup code check.
func (s *TwoFaService) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	kind := ClassifyCode(code, s.backupCodeLength)

	err := s.repo.WithCredentialTx(ctx, userID, func(tx CredentialTx) error {
		cred, ok := tx.Get()
		if !ok || !cred.IsEnabled {
			return ErrNotEnabled
		}
		if _, ok := s.matchCode(cred, code, kind); !ok {
			return ErrInvalidCode
		}
		tx.Delete()
		return nil
	})
	if err != nil {
		return s.txError("disable 2FA", userID, err)
	}

	s.dropEmailOtp(ctx, userID)
	slog.Info("Two-factor authentication disabled", "userID", userID)
	return nil
}

// RegenerateBackupCodes replaces every stored backup code. Only a TOTP code is
// accepted so a single leaked backup code cannot mint a new set.
func (s *TwoFaService) RegenerateBackupCodes(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	codes, hashes, err := s.newBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.withTotpConfirmed(ctx, userID, code, func(cred *TwoFactorCredential) {
		cred.BackupCodes = hashes
	})
	if err != nil {
		return nil, s.txError("regenerate backup codes", userID, err)
	}

	slog.Info("Backup codes regenerated", "userID", userID, "count", len(codes))
	return codes, nil
}

// SetRecoveryEmail stores the destination for email codes. Requires a TOTP code.
func (s *TwoFaService) SetRecoveryEmail(ctx context.Context, userID uuid.UUID, email, code string) error {
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}

	err := s.withTotpConfirmed(ctx, userID, code, func(cred *TwoFactorCredential) {
		cred.RecoveryEmail = email
	})
	if err != nil {
		return s.txError("set recovery email", userID, err)
	}

	slog.Info("Recovery email updated", "userID", userID, "email", utils.MaskEmail(email))
	return nil
}

// SendEmailOtp issues a numeric code to the recovery email, replacing any code
// still outstanding. A delivery failure is reported in DeliveryWarning and does
// not invalidate the stored code.
func (s *TwoFaService) SendEmailOtp(ctx context.Context, userID uuid.UUID) (EmailOtpDispatch, error) {
	cred, err := s.repo.GetCredential(ctx, userID)
	if errors.Is(err, ErrCredentialNotFound) {
		return EmailOtpDispatch{}, ErrNotEnabled
	}
	if err != nil {
		slog.Error("Failed to get 2FA credential", "userID", userID, "error", err)
		return EmailOtpDispatch{}, fmt.Errorf("failed to send email code: %w", err)
	}
	if !cred.IsEnabled {
		return EmailOtpDispatch{}, ErrNotEnabled
	}
	if cred.RecoveryEmail == "" {
		return EmailOtpDispatch{}, ErrRecoveryEmailNotSet
	}

	if s.limiter != nil {
		ok, retryAfter, err := s.limiter.Allow(ctx, userID.String())
		if err != nil {
			slog.Error("Failed to check email code rate limit", "userID", userID, "error", err)
			return EmailOtpDispatch{}, fmt.Errorf("failed to check email code rate limit: %w", err)
		}
		if !ok {
			slog.Info("Email code request throttled", "userID", userID, "retryAfter", retryAfter)
			return EmailOtpDispatch{}, ErrRateLimited.WithDetail("retry_after", retryAfter.Round(time.Second).String())
		}
	}

	otp, err := GenerateNumericOtp(EmailOtpLength)
	if err != nil {
		return EmailOtpDispatch{}, fmt.Errorf("failed to generate email code: %w", err)
	}

	expiresAt := s.clock().Add(s.emailOtpTTL)
	err = s.otpStore.Save(ctx, EmailOtpRecord{
		UserID:    userID,
		OtpHash:   s.hasher.Hash(otp),
		ExpiresAt: expiresAt,
	}, s.emailOtpTTL)
	if err != nil {
		slog.Error("Failed to store email code", "userID", userID, "error", err)
		return EmailOtpDispatch{}, fmt.Errorf("failed to store email code: %w", err)
	}

	dispatch := EmailOtpDispatch{
		MaskedEmail: utils.MaskEmail(cred.RecoveryEmail),
		ExpiresAt:   expiresAt,
	}

	user := s.resolveUser(ctx, userID)
	err = s.deliver(notification.TwofaEmailOtpNotice, notification.NotificationData{
		To: cred.RecoveryEmail,
		Data: map[string]string{
			"DisplayName":      user.Label(),
			"Passcode":         otp,
			"ExpiresInMinutes": strconv.Itoa(int(s.emailOtpTTL.Minutes())),
		},
	})
	if err != nil {
		slog.Warn("Failed to deliver email code", "userID", userID, "error", err)
		dispatch.DeliveryWarning = "the code was issued but the email could not be sent; request a new code to retry"
	} else {
		slog.Info("Email code sent", "userID", userID, "to", dispatch.MaskedEmail)
	}
	return dispatch, nil
}

// VerifyEmailOtp consumes the outstanding email code on match. Wrong, missing and
// expired codes return false, as does a match for a user whose 2FA is no longer enabled.
func (s *TwoFaService) VerifyEmailOtp(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	normalized := NormalizeCode(code)
	if len(normalized) != EmailOtpLength || !isDigits(normalized) {
		slog.Info("Email code verification failed", "userID", userID, "reason", "malformed code")
		return false, nil
	}

	now := s.clock()
	ok, err := s.otpStore.Consume(ctx, userID, s.hasher.Hash(normalized), now, s.maxEmailOtpAttempts)
	if err != nil {
		slog.Error("Failed to consume email code", "userID", userID, "error", err)
		return false, fmt.Errorf("failed to verify email code: %w", err)
	}
	if !ok {
		slog.Info("Email code verification failed", "userID", userID)
		return false, nil
	}

	enabled := false
	err = s.repo.WithCredentialTx(ctx, userID, func(tx CredentialTx) error {
		cred, exists := tx.Get()
		if !exists || !cred.IsEnabled {
			return nil
		}
		enabled = true
		cred.LastUsedAt = &now
		tx.Put(cred)
		return nil
	})
	if err != nil {
		slog.Error("Failed to record email code use", "userID", userID, "error", err)
		return false, fmt.Errorf("failed to verify email code: %w", err)
	}
	if !enabled {
		// 2FA was disabled or reset after the code was issued
		slog.Info("Email code verification failed", "userID", userID, "reason", "2FA not enabled")
		return false, nil
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, userID.String()); err != nil {
			slog.Warn("Failed to reset email code rate limit", "userID", userID, "error", err)
		}
	}

	slog.Info("Email code verified", "userID", userID)
	return true, nil
}

// AdminReset removes another user's enabled credential without a code and tells
// the user about it. Administrators cannot reset themselves through this path.
func (s *TwoFaService) AdminReset(ctx context.Context, actingAdmin, targetUser uuid.UUID) error {
	if actingAdmin == targetUser {
		slog.Warn("Administrator attempted to reset own 2FA", "adminID", actingAdmin)
		return ErrSelfReset
	}

	var recoveryEmail string
	err := s.repo.WithCredentialTx(ctx, targetUser, func(tx CredentialTx) error {
		cred, ok := tx.Get()
		if !ok {
			return ErrNotConfigured
		}
		if !cred.IsEnabled {
			return ErrNotEnabled
		}
		recoveryEmail = cred.RecoveryEmail
		tx.Delete()
		return nil
	})
	if err != nil {
		return s.txError("reset 2FA", targetUser, err)
	}

	s.dropEmailOtp(ctx, targetUser)
	resetAt := s.clock()
	slog.Warn("Two-factor authentication reset by administrator", "adminID", actingAdmin, "userID", targetUser, "resetAt", resetAt)

	user := s.resolveUser(ctx, targetUser)
	to := user.Email
	if to == "" {
		to = recoveryEmail
	}
	if to == "" {
		slog.Warn("No address to notify about 2FA reset", "userID", targetUser)
		return nil
	}

	err = s.deliver(notification.TwofaAdminResetNotice, notification.NotificationData{
		To: to,
		Data: map[string]string{
			"DisplayName": user.Label(),
			"ResetAt":     resetAt.Format(time.RFC1123),
		},
	})
	if err != nil {
		slog.Warn("Failed to notify user about 2FA reset", "userID", targetUser, "error", err)
	}
	return nil
}

// matchCode verifies code against cred. A matched backup code is removed from the
// returned copy. LastUsedAt is stamped on success.
func (s *TwoFaService) matchCode(cred TwoFactorCredential, code string, kind CodeKind) (TwoFactorCredential, bool) {
	now := s.clock()
	switch kind {
	case CodeKindTotp:
		if !TotpVerify(cred.Secret, NormalizeCode(code), now, s.totpWindow) {
			return cred, false
		}
	case CodeKindBackup:
		idx := -1
		for i, hash := range cred.BackupCodes {
			// no early exit so timing does not reveal the position
			if s.hasher.Match(hash, code) && idx < 0 {
				idx = i
			}
		}
		if idx < 0 {
			return cred, false
		}
		remaining := make([]string, 0, len(cred.BackupCodes)-1)
		remaining = append(remaining, cred.BackupCodes[:idx]...)
		remaining = append(remaining, cred.BackupCodes[idx+1:]...)
		cred.BackupCodes = remaining
	default:
		return cred, false
	}
	cred.LastUsedAt = &now
	return cred, true
}

// withTotpConfirmed applies mutate to an enabled credential once code verifies as TOTP.
func (s *TwoFaService) withTotpConfirmed(ctx context.Context, userID uuid.UUID, code string, mutate func(cred *TwoFactorCredential)) error {
	kind := ClassifyCode(code, s.backupCodeLength)
	return s.repo.WithCredentialTx(ctx, userID, func(tx CredentialTx) error {
		cred, ok := tx.Get()
		if !ok || !cred.IsEnabled {
			return ErrNotEnabled
		}
		switch kind {
		case CodeKindBackup:
			return ErrTotpRequired
		case CodeKindInvalid:
			return ErrInvalidCode
		}
		updated, ok := s.matchCode(cred, code, CodeKindTotp)
		if !ok {
			return ErrInvalidCode
		}
		mutate(&updated)
		tx.Put(updated)
		return nil
	})
}

func (s *TwoFaService) newBackupCodes() ([]string, []string, error) {
	codes, err := GenerateBackupCodes(s.backupCodeCount, s.backupCodeLength)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate backup codes: %w", err)
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = s.hasher.Hash(c)
	}
	return codes, hashes, nil
}

// txError logs and passes through precondition failures, and wraps anything else.
func (s *TwoFaService) txError(action string, userID uuid.UUID, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		slog.Info("Two-factor request rejected", "action", action, "userID", userID, "reason", err)
		return err
	}
	slog.Error("Failed to "+action, "userID", userID, "error", err)
	return fmt.Errorf("failed to %s: %w", action, err)
}

func (s *TwoFaService) dropEmailOtp(ctx context.Context, userID uuid.UUID) {
	if err := s.otpStore.Delete(ctx, userID); err != nil {
		slog.Warn("Failed to drop outstanding email code", "userID", userID, "error", err)
	}
}

func (s *TwoFaService) deliver(noticeType notification.NoticeType, data notification.NotificationData) error {
	if s.notifier == nil {
		return fmt.Errorf("no notification sender configured")
	}
	return s.notifier.Send(noticeType, data)
}

func (s *TwoFaService) resolveUser(ctx context.Context, userID uuid.UUID) identity.User {
	if s.users == nil {
		return identity.User{ID: userID}
	}
	user, err := s.users.ResolveUser(ctx, userID)
	if err != nil {
		slog.Warn("Failed to resolve user", "userID", userID, "error", err)
		return identity.User{ID: userID}
	}
	return user
}

func (s *TwoFaService) accountLabel(ctx context.Context, userID uuid.UUID) string {
	user := s.resolveUser(ctx, userID)
	if user.Email != "" {
		return user.Email
	}
	return userID.String()
}
