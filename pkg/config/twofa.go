package config

import (
	"time"

	"github.com/tendant/simple-2fa/pkg/twofa"
)

// TwoFactorConfig holds the tunables of the two-factor service and the choice of backends
type TwoFactorConfig struct {
	Issuer              string        `env:"TWOFA_ISSUER" env-default:"simple-2fa"`
	TotpWindow          uint          `env:"TWOFA_TOTP_WINDOW" env-default:"1"`
	EmailOtpTTL         time.Duration `env:"TWOFA_EMAIL_OTP_TTL" env-default:"10m"`
	MaxEmailOtpAttempts int           `env:"TWOFA_EMAIL_OTP_MAX_ATTEMPTS" env-default:"5"`
	BackupCodeCount     int           `env:"TWOFA_BACKUP_CODE_COUNT" env-default:"10"`
	BackupCodeLength    int           `env:"TWOFA_BACKUP_CODE_LENGTH" env-default:"8"`
	CodeHashKey         string        `env:"TWOFA_CODE_HASH_KEY"`
	QRSize              int           `env:"TWOFA_QR_SIZE" env-default:"256"`

	// Persistence selects the credential store: "postgres" or "file"
	Persistence string `env:"TWOFA_PERSISTENCE" env-default:"file"`
	DataDir     string `env:"TWOFA_DATA_DIR" env-default:"./data"`
	// OtpStore selects the email OTP store: "redis" or "memory"
	OtpStore string `env:"TWOFA_OTP_STORE" env-default:"memory"`
}

// ServiceOptions translates the config into service options.
// Collaborators (notifier, resolver, limiter) are wired by the caller.
func (c TwoFactorConfig) ServiceOptions() []twofa.TwoFaServiceOption {
	opts := []twofa.TwoFaServiceOption{
		twofa.WithIssuer(c.Issuer),
		twofa.WithTotpWindow(c.TotpWindow),
		twofa.WithEmailOtpTTL(c.EmailOtpTTL),
		twofa.WithMaxEmailOtpAttempts(c.MaxEmailOtpAttempts),
		twofa.WithBackupCodeCount(c.BackupCodeCount),
		twofa.WithBackupCodeLength(c.BackupCodeLength),
		twofa.WithCodeHasher(twofa.NewCodeHasher(c.CodeHashKey)),
	}
	if c.QRSize > 0 {
		opts = append(opts, twofa.WithQRRenderer(twofa.NewPNGQRRenderer(c.QRSize)))
	} else {
		opts = append(opts, twofa.WithQRRenderer(nil))
	}
	return opts
}

// UsesPostgres reports whether any configured backend needs a database pool
func (c TwoFactorConfig) UsesPostgres() bool {
	return c.Persistence == "postgres" || c.Persistence == "postgresql"
}

// UsesRedis reports whether the email OTP store lives in redis
func (c TwoFactorConfig) UsesRedis() bool {
	return c.OtpStore == "redis"
}

func (c TwoFactorConfig) validate() ValidationErrors {
	var v checks
	v.required("TWOFA_ISSUER", c.Issuer)
	v.between("TWOFA_TOTP_WINDOW", int(c.TotpWindow), 0, 10)
	v.positiveDuration("TWOFA_EMAIL_OTP_TTL", c.EmailOtpTTL)
	v.atLeast("TWOFA_EMAIL_OTP_MAX_ATTEMPTS", c.MaxEmailOtpAttempts, 0)
	v.between("TWOFA_BACKUP_CODE_COUNT", c.BackupCodeCount, 1, 50)
	v.between("TWOFA_BACKUP_CODE_LENGTH", c.BackupCodeLength, 2, 32)
	// a six character backup code would be indistinguishable from a TOTP code
	if c.BackupCodeLength == twofa.TotpDigits {
		v.fail("TWOFA_BACKUP_CODE_LENGTH", "must not be %d", twofa.TotpDigits)
	}
	v.atLeast("TWOFA_QR_SIZE", c.QRSize, 0)
	v.oneOf("TWOFA_PERSISTENCE", c.Persistence, "postgres", "postgresql", "file")
	if c.Persistence == "file" {
		v.required("TWOFA_DATA_DIR", c.DataDir)
	}
	v.oneOf("TWOFA_OTP_STORE", c.OtpStore, "redis", "memory", "inmem")
	return v.result()
}
