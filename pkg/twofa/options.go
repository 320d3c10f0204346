package twofa

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tendant/simple-2fa/pkg/identity"
	"github.com/tendant/simple-2fa/pkg/notification"
)

const (
	DefaultIssuer      = "simple-2fa"
	DefaultEmailOtpTTL = 10 * time.Minute
)

// NotificationSender delivers a notice. *notification.NotificationManager implements it.
type NotificationSender interface {
	Send(noticeType notification.NoticeType, data notification.NotificationData) error
}

// RateLimiter throttles email OTP issuance per user. *ratelimit.RateLimiter and
// *ratelimit.RedisLimiter implement it. Reset is called after a successful email code.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// TwoFaServiceOption defines configuration options
type TwoFaServiceOption func(*TwoFaService)

// WithIssuer sets the issuer shown in authenticator apps
func WithIssuer(issuer string) TwoFaServiceOption {
	return func(s *TwoFaService) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithTotpWindow sets how many 30 second steps either side of now are accepted
func WithTotpWindow(window uint) TwoFaServiceOption {
	return func(s *TwoFaService) {
		s.totpWindow = window
	}
}

// WithEmailOtpTTL sets how long an emailed code stays valid
func WithEmailOtpTTL(ttl time.Duration) TwoFaServiceOption {
	return func(s *TwoFaService) {
		if ttl > 0 {
			s.emailOtpTTL = ttl
		}
	}
}

// WithBackupCodeCount sets how many backup codes are issued per batch
func WithBackupCodeCount(count int) TwoFaServiceOption {
	return func(s *TwoFaService) {
		if count > 0 {
			s.backupCodeCount = count
		}
	}
}

// WithBackupCodeLength sets the number of characters in a backup code
func WithBackupCodeLength(length int) TwoFaServiceOption {
	return func(s *TwoFaService) {
		if length >= 2 && length != TotpDigits {
			s.backupCodeLength = length
		}
	}
}

// WithMaxEmailOtpAttempts sets how many wrong guesses destroy an email code (0 = unlimited)
func WithMaxEmailOtpAttempts(attempts int) TwoFaServiceOption {
	return func(s *TwoFaService) {
		if attempts >= 0 {
			s.maxEmailOtpAttempts = attempts
		}
	}
}

// WithCodeHasher sets the hasher for backup codes and email codes
func WithCodeHasher(hasher CodeHasher) TwoFaServiceOption {
	return func(s *TwoFaService) {
		s.hasher = hasher
	}
}

// WithNotificationSender sets the delivery collaborator for email codes and reset notices
func WithNotificationSender(sender NotificationSender) TwoFaServiceOption {
	return func(s *TwoFaService) {
		s.notifier = sender
	}
}

// WithUserResolver sets the identity collaborator used to address notifications
func WithUserResolver(resolver identity.Resolver) TwoFaServiceOption {
	return func(s *TwoFaService) {
		s.users = resolver
	}
}

// WithQRRenderer sets the renderer for the enrollment QR code; nil disables rendering
func WithQRRenderer(renderer QRRenderer) TwoFaServiceOption {
	return func(s *TwoFaService) {
		s.qr = renderer
	}
}

// WithEmailOtpLimiter throttles SendEmailOtp per user
func WithEmailOtpLimiter(limiter RateLimiter) TwoFaServiceOption {
	return func(s *TwoFaService) {
		s.limiter = limiter
	}
}

// WithEmailValidator shares a validator instance with the rest of the application
func WithEmailValidator(v *validator.Validate) TwoFaServiceOption {
	return func(s *TwoFaService) {
		if v != nil {
			s.validate = v
		}
	}
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) TwoFaServiceOption {
	return func(s *TwoFaService) {
		if now != nil {
			s.now = now
		}
	}
}
