package twofa

import (
	"errors"

	apperrors "github.com/tendant/simple-2fa/pkg/errors"
)

var (
	ErrAlreadyEnabled       = apperrors.New(apperrors.ErrCode2FAAlreadyEnabled, "two-factor authentication is already enabled")
	ErrNotConfigured        = apperrors.New(apperrors.ErrCode2FANotConfigured, "two-factor authentication is not set up")
	ErrNotEnabled           = apperrors.New(apperrors.ErrCode2FANotEnabled, "two-factor authentication is not enabled")
	ErrInvalidCode          = apperrors.New(apperrors.ErrCode2FAInvalid, "invalid verification code")
	ErrTotpRequired         = apperrors.New(apperrors.ErrCode2FATotpRequired, "an authenticator app code is required")
	ErrRecoveryEmailNotSet  = apperrors.New(apperrors.ErrCode2FANoRecoveryEmail, "no recovery email configured")
	ErrInvalidEmail         = apperrors.New(apperrors.ErrCodeInvalidInput, "invalid email address")
	ErrSelfReset            = apperrors.New(apperrors.ErrCodeForbidden, "administrators cannot reset their own two-factor authentication")
	ErrRateLimited          = apperrors.New(apperrors.ErrCodeRateLimitExceeded, "too many email codes requested")
	ErrTwoFactorUnavailable = apperrors.New(apperrors.ErrCodeUnavailable, "two-factor authentication not configured")
)

// ErrCredentialNotFound is returned by repositories when a user has no credential.
var ErrCredentialNotFound = errors.New("two-factor credential not found")
