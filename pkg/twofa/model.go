package twofa

import (
	"time"

	"github.com/google/uuid"
)

// TwoFactorCredential is the durable per-user 2FA record. A credential with
// IsEnabled == false is a pending enrollment and never satisfies verification.
type TwoFactorCredential struct {
	UserID        uuid.UUID  `json:"user_id"`
	Secret        string     `json:"secret"`
	IsEnabled     bool       `json:"is_enabled"`
	BackupCodes   []string   `json:"backup_codes"` // hashes only
	RecoveryEmail string     `json:"recovery_email,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	EnabledAt     *time.Time `json:"enabled_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
}

// EmailOtpRecord is the short-lived fallback code issued to the recovery email.
type EmailOtpRecord struct {
	UserID    uuid.UUID
	OtpHash   string
	ExpiresAt time.Time
	Attempts  int
}

// Status summarises a user's 2FA state without exposing secrets.
type Status struct {
	Configured           bool       `json:"configured"`
	Enabled              bool       `json:"enabled"`
	HasBackupCodes       bool       `json:"has_backup_codes"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
	HasRecoveryEmail     bool       `json:"has_recovery_email"`
	RecoveryEmailMasked  string     `json:"recovery_email_masked,omitempty"`
	CreatedAt            *time.Time `json:"created_at,omitempty"`
	EnabledAt            *time.Time `json:"enabled_at,omitempty"`
	LastUsedAt           *time.Time `json:"last_used_at,omitempty"`
}

// SetupResult is returned once by Setup. Secret and ProvisioningURI must only be
// shown to the enrolling user.
type SetupResult struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCodePNG       []byte `json:"qr_code_png,omitempty"`
}

// EmailOtpDispatch describes an issued email OTP. DeliveryWarning is set when the
// code was stored but the email could not be sent; the code stays valid.
type EmailOtpDispatch struct {
	MaskedEmail     string    `json:"masked_email"`
	ExpiresAt       time.Time `json:"expires_at"`
	DeliveryWarning string    `json:"delivery_warning,omitempty"`
}
