// Package config loads and validates the process configuration for simple-2fa.
//
// Every setting comes from the environment through cleanenv struct tags, with an
// optional .env file loaded first:
//
//	config.LoadEnvFile(".env")
//	cfg, err := config.Load()
//	if err != nil {
//		slog.Error("Invalid configuration", "error", err)
//		os.Exit(1)
//	}
//
//	svc := twofa.NewTwoFaService(repo, otpStore, cfg.TwoFactor.ServiceOptions()...)
//
// # Sections
//
//   - TwoFactorConfig (TWOFA_*): issuer, TOTP window, email OTP lifetime and attempt
//     limit, backup code shape, the optional hash key, and which backends to use
//   - DatabaseConfig (TWOFA_PG_*): only validated when TWOFA_PERSISTENCE=postgres
//   - RedisConfig (TWOFA_REDIS_*): only validated when TWOFA_OTP_STORE=redis
//   - EmailConfig (EMAIL_*): SMTP settings; EMAIL_ENABLED=false keeps mail in memory
//   - RateLimitConfig (TWOFA_EMAIL_OTP_RATE_LIMIT_*): per-user email OTP throttling
//
// # Validation
//
// Validation problems are collected rather than reported one at a time:
//
//	err := cfg.Validate()
//	var verrs config.ValidationErrors
//	if errors.As(err, &verrs) {
//		for _, v := range verrs {
//			fmt.Println(v.Field, v.Message)
//		}
//	}
package config
