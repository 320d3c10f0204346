package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-2fa/pkg/errors"
	"github.com/tendant/simple-2fa/pkg/notification"
	"github.com/tendant/simple-2fa/pkg/twofa"
)

var errUsage = errors.New("invalid arguments")

// sendOtpOutput adds the code itself when email delivery is disabled
type sendOtpOutput struct {
	twofa.EmailOtpDispatch
	CapturedCode string `json:"captured_code,omitempty"`
}

type command struct {
	nargs int // positional arguments, user id included
	run   func(ctx context.Context, a *app, ids []uuid.UUID, args []string) (any, error)
}

var commands = map[string]command{
	"status": {1, func(ctx context.Context, a *app, ids []uuid.UUID, _ []string) (any, error) {
		return a.svc.GetStatus(ctx, ids[0])
	}},
	"setup": {1, runSetup},
	"enable": {2, func(ctx context.Context, a *app, ids []uuid.UUID, args []string) (any, error) {
		codes, err := a.svc.VerifyAndEnable(ctx, ids[0], args[0])
		return map[string]any{"enabled": err == nil, "backup_codes": codes}, err
	}},
	"verify": {2, func(ctx context.Context, a *app, ids []uuid.UUID, args []string) (any, error) {
		ok, err := a.svc.VerifyCode(ctx, ids[0], args[0])
		return map[string]bool{"valid": ok}, err
	}},
	"disable": {2, func(ctx context.Context, a *app, ids []uuid.UUID, args []string) (any, error) {
		err := a.svc.Disable(ctx, ids[0], args[0])
		return map[string]bool{"disabled": err == nil}, err
	}},
	"regen": {2, func(ctx context.Context, a *app, ids []uuid.UUID, args []string) (any, error) {
		codes, err := a.svc.RegenerateBackupCodes(ctx, ids[0], args[0])
		return map[string]any{"backup_codes": codes}, err
	}},
	"set-email": {3, func(ctx context.Context, a *app, ids []uuid.UUID, args []string) (any, error) {
		err := a.svc.SetRecoveryEmail(ctx, ids[0], args[0], args[1])
		return map[string]bool{"updated": err == nil}, err
	}},
	"send-otp": {1, func(ctx context.Context, a *app, ids []uuid.UUID, _ []string) (any, error) {
		dispatch, err := a.svc.SendEmailOtp(ctx, ids[0])
		out := sendOtpOutput{EmailOtpDispatch: dispatch}
		if err == nil && a.outbox != nil {
			if sent, ok := a.outbox.Last(notification.TwofaEmailOtpNotice); ok {
				slog.Info("Email delivery disabled, code captured locally", "to", dispatch.MaskedEmail)
				out.CapturedCode = sent.Data["Passcode"]
			}
		}
		return out, err
	}},
	"verify-otp": {2, func(ctx context.Context, a *app, ids []uuid.UUID, args []string) (any, error) {
		ok, err := a.svc.VerifyEmailOtp(ctx, ids[0], args[0])
		return map[string]bool{"valid": ok}, err
	}},
	"admin-reset": {2, func(ctx context.Context, a *app, ids []uuid.UUID, _ []string) (any, error) {
		err := a.svc.AdminReset(ctx, ids[0], ids[1])
		return map[string]bool{"reset": err == nil}, err
	}},
}

// idArgs is how many leading positional arguments are user ids
func idArgs(name string) int {
	if name == "admin-reset" {
		return 2
	}
	return 1
}

func run(ctx context.Context, a *app, name string, args []string) int {
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		return 2
	}
	if len(args) < cmd.nargs {
		usage()
		return 2
	}

	n := idArgs(name)
	ids := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		id, err := uuid.Parse(args[i])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid user id %q: %v\n", args[i], err)
			return 2
		}
		ids[i] = id
	}

	result, err := cmd.run(ctx, a, ids, args[n:])
	if errors.Is(err, errUsage) {
		usage()
		return 2
	}
	if err != nil {
		return report(a.output(), err)
	}
	return printJSON(a.output(), result)
}

func runSetup(ctx context.Context, a *app, ids []uuid.UUID, args []string) (any, error) {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	qrFile := fs.String("qr", "", "Write the enrollment QR code PNG to this file")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}

	result, err := a.svc.Setup(ctx, ids[0])
	if err != nil {
		return nil, err
	}
	if *qrFile != "" && len(result.QRCodePNG) > 0 {
		if err := os.WriteFile(*qrFile, result.QRCodePNG, 0o600); err != nil {
			return nil, fmt.Errorf("write QR code: %w", err)
		}
		slog.Info("QR code written", "path", *qrFile)
	}
	return map[string]string{
		"secret":           result.Secret,
		"provisioning_uri": result.ProvisioningURI,
	}, nil
}

// report prints a rejection as JSON. Rejections exit 1; failures the caller
// cannot fix (server side statuses) exit 3.
func report(w io.Writer, err error) int {
	code := apperrors.GetCode(err)
	exit := 1
	if apperrors.MapErrorCodeToHTTPStatus(code) >= http.StatusInternalServerError {
		exit = 3
	}

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		slog.Error("Command failed", "error", err)
		return exit
	}
	out := map[string]any{"error": code, "message": appErr.Message}
	if details := apperrors.GetDetails(err); len(details) > 0 {
		out["details"] = details
	}
	printJSON(w, out)
	return exit
}

func printJSON(w io.Writer, v any) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("Failed to encode output", "error", err)
		return 1
	}
	return 0
}
