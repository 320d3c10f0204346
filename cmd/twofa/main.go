package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-2fa/pkg/config"
	"github.com/tendant/simple-2fa/pkg/identity"
	"github.com/tendant/simple-2fa/pkg/notification"
	"github.com/tendant/simple-2fa/pkg/twofa"
)

// app holds everything a subcommand needs; close releases it.
type app struct {
	svc     twofa.TwoFactorService
	outbox  *notification.MockNotifier // set when email delivery is disabled
	out     io.Writer                  // command output, stdout when nil
	closers []func()
}

func (a *app) output() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func main() {
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	userEmail := flag.String("user-email", "", "Email of the target user when no users table is configured")
	userName := flag.String("user-name", "", "Display name of the target user when no users table is configured")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	config.LoadEnvFile(*envFile)
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := flag.Arg(1)
	if flag.Arg(0) == "admin-reset" {
		target = flag.Arg(2)
	}
	a, err := newApp(ctx, cfg, *userEmail, *userName, target)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}

	code := run(ctx, a, flag.Arg(0), flag.Args()[1:])
	a.close()
	os.Exit(code)
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{
		AddSource: cfg.Environment() == config.Development,
		Level:     cfg.SlogLevel(),
	}
	var handler slog.Handler
	if cfg.Environment() == config.Production {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newApp(ctx context.Context, cfg config.Config, userEmail, userName, targetUser string) (*app, error) {
	a := &app{}

	var pool *pgxpool.Pool
	if cfg.TwoFactor.UsesPostgres() {
		p, err := pgxpool.New(ctx, cfg.Database.ToDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			slog.Error("Failed pinging database", "host", cfg.Database.Host, "port", cfg.Database.Port, "db", cfg.Database.Database, "user", cfg.Database.User)
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		pool = p
		a.closers = append(a.closers, p.Close)
	}

	repo, err := twofa.NewCredentialRepository(cfg.TwoFactor.Persistence, twofa.RepositoryConfig{
		Pool:    pool,
		DataDir: cfg.TwoFactor.DataDir,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	var rdb redis.UniversalClient
	if cfg.TwoFactor.UsesRedis() {
		rdb = cfg.Redis.NewClient()
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	} else {
		slog.Debug("Email OTP store is process local; codes do not survive between invocations")
	}
	otpStore, err := twofa.NewEmailOtpStore(cfg.TwoFactor.OtpStore, twofa.OtpStoreConfig{
		Redis:     rdb,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	notifierOpt := notification.WithSMTP(cfg.Email.ToSMTPConfig())
	if !cfg.Email.Enabled {
		a.outbox = &notification.MockNotifier{}
		notifierOpt = notification.WithNotifier(notification.EmailSystem, a.outbox)
	}
	notifier, err := notification.NewNotificationManagerWithOptions(notifierOpt, notification.WithDefaultTemplates())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create notification manager: %w", err)
	}

	resolver, err := newResolver(pool, cfg.Database.UsersTable, userEmail, userName, targetUser)
	if err != nil {
		a.close()
		return nil, err
	}

	opts := cfg.TwoFactor.ServiceOptions()
	opts = append(opts,
		twofa.WithNotificationSender(notifier),
		twofa.WithUserResolver(resolver),
		twofa.WithEmailValidator(validator.New()),
	)
	if rdb != nil {
		// every invocation is a new process, so only a shared counter can throttle
		prefix := cfg.Redis.KeyPrefix
		if prefix == "" {
			prefix = twofa.DefaultOtpKeyPrefix
		}
		if limiter := cfg.RateLimit.NewRedisLimiter(rdb, prefix); limiter != nil {
			opts = append(opts, twofa.WithEmailOtpLimiter(limiter))
		}
	} else if limiter := cfg.RateLimit.NewRateLimiter(); limiter != nil {
		a.closers = append(a.closers, limiter.Close)
		opts = append(opts, twofa.WithEmailOtpLimiter(limiter))
	}

	a.svc = twofa.NewTwoFaService(repo, otpStore, opts...)
	return a, nil
}

// newResolver reads users from postgres when a pool exists; otherwise the
// target user can be described on the command line.
func newResolver(pool *pgxpool.Pool, table, email, name, targetUser string) (identity.Resolver, error) {
	if pool != nil {
		return identity.NewPostgresResolver(pool, table)
	}
	resolver := identity.NewStaticResolver()
	if id, err := uuid.Parse(targetUser); err == nil && (email != "" || name != "") {
		resolver.Add(identity.User{ID: id, Email: email, DisplayName: name})
	}
	return resolver, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: twofa [flags] <command> <user-id> [args]

Commands:
  status       <user-id>
  setup        <user-id> [-qr file.png]
  enable       <user-id> <totp-code>
  verify       <user-id> <code>
  disable      <user-id> <code>
  regen        <user-id> <totp-code>
  set-email    <user-id> <email> <totp-code>
  send-otp     <user-id>
  verify-otp   <user-id> <email-code>
  admin-reset  <admin-id> <user-id>

Exit status is 0 on success, 1 when the request is rejected, 2 on usage
errors and 3 when the service itself failed.

Flags:
`)
	flag.PrintDefaults()
}
