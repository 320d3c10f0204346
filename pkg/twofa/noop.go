package twofa

import (
	"context"

	"github.com/google/uuid"
)

// NoOpTwoFactorService is a no-op implementation of TwoFactorService.
// This allows services that depend on TwoFactorService to work without
// actual 2FA functionality when 2FA is not needed/configured.
//
// Status reports "not configured", VerifyCode always passes and every
// mutation fails with ErrTwoFactorUnavailable.
type NoOpTwoFactorService struct{}

// NewNoOpTwoFactorService creates a new no-op two-factor service.
// Use this when you don't need 2FA functionality.
func NewNoOpTwoFactorService() TwoFactorService {
	return &NoOpTwoFactorService{}
}

func (n *NoOpTwoFactorService) GetStatus(ctx context.Context, userID uuid.UUID) (Status, error) {
	return Status{}, nil
}

func (n *NoOpTwoFactorService) Setup(ctx context.Context, userID uuid.UUID) (SetupResult, error) {
	return SetupResult{}, ErrTwoFactorUnavailable
}

func (n *NoOpTwoFactorService) VerifyAndEnable(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	return nil, ErrTwoFactorUnavailable
}

func (n *NoOpTwoFactorService) VerifyCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	return true, nil // nobody has 2FA enabled
}

func (n *NoOpTwoFactorService) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	return ErrTwoFactorUnavailable
}

func (n *NoOpTwoFactorService) RegenerateBackupCodes(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	return nil, ErrTwoFactorUnavailable
}

func (n *NoOpTwoFactorService) SetRecoveryEmail(ctx context.Context, userID uuid.UUID, email, code string) error {
	return ErrTwoFactorUnavailable
}

func (n *NoOpTwoFactorService) SendEmailOtp(ctx context.Context, userID uuid.UUID) (EmailOtpDispatch, error) {
	return EmailOtpDispatch{}, ErrTwoFactorUnavailable
}

func (n *NoOpTwoFactorService) VerifyEmailOtp(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	return false, nil
}

func (n *NoOpTwoFactorService) AdminReset(ctx context.Context, actingAdmin, targetUser uuid.UUID) error {
	return ErrTwoFactorUnavailable
}
