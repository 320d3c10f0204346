package notification

import (
	"embed"
	"fmt"
	"path"
)

//go:embed templates/*
var templateFiles embed.FS

// defaultNotices lists the email notices shipped with the package. Each one
// has a <name>.txt and a <name>.html body under templates/email.
var defaultNotices = []struct {
	noticeType NoticeType
	subject    string
	name       string
}{
	{TwofaEmailOtpNotice, "Your verification code", "twofa_email_otp"},
	{TwofaAdminResetNotice, "Two-factor authentication was reset", "twofa_admin_reset"},
}

// loadEmailTemplate reads the embedded text and html bodies for name.
func loadEmailTemplate(subject, name string) (NoticeTemplate, error) {
	dir := "templates/email"
	text, err := templateFiles.ReadFile(path.Join(dir, name+".txt"))
	if err != nil {
		return NoticeTemplate{}, fmt.Errorf("read template %s: %w", name, err)
	}
	html, err := templateFiles.ReadFile(path.Join(dir, name+".html"))
	if err != nil {
		return NoticeTemplate{}, fmt.Errorf("read template %s: %w", name, err)
	}
	return NoticeTemplate{Subject: subject, Text: string(text), Html: string(html)}, nil
}

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithNotifier registers an arbitrary notifier, e.g. a MockNotifier in tests
func WithNotifier(system NotificationSystem, notifier Notifier) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(system, notifier)
		return nil
	}
}

// WithTemplate registers a custom email template for noticeType, replacing any default
func WithTemplate(noticeType NoticeType, template NoticeTemplate) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(noticeType, EmailSystem, template)
	}
}

// WithDefaultTemplates registers the embedded email templates for every two-factor notice
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		for _, n := range defaultNotices {
			tmpl, err := loadEmailTemplate(n.subject, n.name)
			if err != nil {
				return err
			}
			if err := nm.RegisterNotification(n.noticeType, EmailSystem, tmpl); err != nil {
				return err
			}
		}
		return nil
	}
}

// NewNotificationManagerWithOptions creates a notification manager and applies opts in order
func NewNotificationManagerWithOptions(opts ...NotificationManagerOption) (*NotificationManager, error) {
	nm := NewNotificationManager()
	for _, opt := range opts {
		if err := opt(nm); err != nil {
			return nil, err
		}
	}
	return nm, nil
}
