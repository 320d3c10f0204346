package notification

import (
	"errors"
	"strings"
	"testing"
)

const testNotice NoticeType = "example"

func TestNewNotificationManager(t *testing.T) {
	nm := NewNotificationManager()
	if nm == nil {
		t.Fatal("NewNotificationManager returned nil")
	}
	if nm.notifiers == nil {
		t.Error("notifiers map not initialized")
	}
	if nm.notificationRegistry == nil {
		t.Error("notificationRegistry map not initialized")
	}
}

func TestRegisterNotifier(t *testing.T) {
	nm := NewNotificationManager()
	mockNotifier := &MockNotifier{}

	// Test registering a notifier
	nm.RegisterNotifier(EmailSystem, mockNotifier)
	if n, exists := nm.notifiers[EmailSystem]; !exists {
		t.Error("Notifier not registered")
	} else if n != mockNotifier {
		t.Error("Wrong notifier registered")
	}

	// Test overwriting existing notifier
	newMockNotifier := &MockNotifier{}
	nm.RegisterNotifier(EmailSystem, newMockNotifier)
	if n := nm.notifiers[EmailSystem]; n != newMockNotifier {
		t.Error("Notifier not overwritten")
	}
}

func TestRegisterNotification(t *testing.T) {
	nm := NewNotificationManager()

	tests := []struct {
		name        string
		notifType   NoticeType
		system      NotificationSystem
		template    NoticeTemplate
		shouldError bool
	}{
		{
			name:      "Valid registration with both Text and Html",
			notifType: testNotice,
			system:    EmailSystem,
			template:  NoticeTemplate{Subject: "Example Email", Text: "This is an example email", Html: "<p>This is an example email</p>"},
		},
		{
			name:      "Valid registration with Html only",
			notifType: testNotice,
			system:    EmailSystem,
			template:  NoticeTemplate{Subject: "Example Email", Html: "<p>This is an example email</p>"},
		},
		{
			name:        "Empty notification type",
			notifType:   "",
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Example Email", Text: "This is an example email"},
			shouldError: true,
		},
		{
			name:        "Empty system",
			notifType:   testNotice,
			system:      "",
			template:    NoticeTemplate{Subject: "Example Email", Text: "This is an example email"},
			shouldError: true,
		},
		{
			name:        "Empty subject",
			notifType:   testNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "", Text: "This is an example email"},
			shouldError: true,
		},
		{
			name:        "No content",
			notifType:   testNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Example Email"},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := nm.RegisterNotification(tt.notifType, tt.system, tt.template)
			if tt.shouldError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !tt.shouldError {
				if template, exists := nm.notificationRegistry[tt.notifType][tt.system]; !exists {
					t.Error("Template not registered")
				} else if template != tt.template {
					t.Errorf("Wrong template registered. Got %+v, want %+v", template, tt.template)
				}
			}
		})
	}
}

func TestSend(t *testing.T) {
	mockNotifier := &MockNotifier{}
	nm, err := NewNotificationManagerWithOptions(
		WithNotifier(EmailSystem, mockNotifier),
		WithDefaultTemplates(),
	)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	testData := NotificationData{
		To: "user@example.com",
		Data: map[string]string{
			"DisplayName":      "Alice",
			"Passcode":         "123456",
			"ExpiresInMinutes": "10",
		},
	}

	if err := nm.Send(TwofaEmailOtpNotice, testData); err != nil {
		t.Fatalf("Failed to send notification: %v", err)
	}

	sent, ok := mockNotifier.Last(TwofaEmailOtpNotice)
	if !ok {
		t.Fatal("Email notification not sent")
	}
	if sent.To != testData.To || sent.Data["Passcode"] != "123456" {
		t.Error("Email notification data mismatch")
	}
	if mockNotifier.Count(TwofaAdminResetNotice) != 0 {
		t.Error("Unexpected admin reset notification")
	}
}

func TestSendErrors(t *testing.T) {
	nm := NewNotificationManager()

	// Test sending with unregistered notification type
	if err := nm.Send("unregistered", NotificationData{}); err == nil {
		t.Error("Expected error for unregistered notification type")
	}

	// Register notification without registering notifier
	err := nm.RegisterNotification(testNotice, EmailSystem, NoticeTemplate{Subject: "Example Notification", Text: "hello"})
	if err != nil {
		t.Fatalf("Failed to register notification: %v", err)
	}

	// Test sending with missing notifier
	err = nm.Send(testNotice, NotificationData{})
	if err == nil {
		t.Error("Expected error for missing notifier")
	} else if err.Error() != "no notifier registered for system: email" {
		t.Errorf("Unexpected error message: %v", err)
	}

	// Notifier failures are returned
	failing := &MockNotifier{}
	failing.SetErr(errors.New("smtp down"))
	nm.RegisterNotifier(EmailSystem, failing)
	err = nm.Send(testNotice, NotificationData{To: "user@example.com"})
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Errorf("Expected notifier error, got %v", err)
	}
}

func TestNoticeTemplateRender(t *testing.T) {
	tmpl := NoticeTemplate{
		Subject: "Code",
		Text:    "Code: {{.Passcode}}",
		Html:    "<b>{{.DisplayName}}</b>",
	}

	rendered, err := tmpl.Render(NotificationData{
		Data: map[string]string{"Passcode": "654321", "DisplayName": "<script>"},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if rendered.Subject != "Code" {
		t.Errorf("Unexpected subject %q", rendered.Subject)
	}
	if rendered.Text != "Code: 654321" {
		t.Errorf("Unexpected text %q", rendered.Text)
	}
	if rendered.Html != "<b>&lt;script&gt;</b>" {
		t.Errorf("Html not escaped: %q", rendered.Html)
	}

	overridden, err := tmpl.Render(NotificationData{Subject: "Custom"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if overridden.Subject != "Custom" {
		t.Errorf("Subject override ignored: %q", overridden.Subject)
	}
}

func TestDefaultTemplatesEmbedded(t *testing.T) {
	for _, n := range defaultNotices {
		tmpl, err := loadEmailTemplate(n.subject, n.name)
		if err != nil {
			t.Fatalf("template %s: %v", n.name, err)
		}
		if tmpl.Text == "" || tmpl.Html == "" {
			t.Errorf("template %s has an empty body", n.name)
		}
	}

	if _, err := loadEmailTemplate("x", "missing"); err == nil {
		t.Error("Expected error for missing template")
	}
}

func TestWithTemplateOverridesDefault(t *testing.T) {
	mock := &MockNotifier{}
	nm, err := NewNotificationManagerWithOptions(
		WithNotifier(EmailSystem, mock),
		WithDefaultTemplates(),
		WithTemplate(TwofaEmailOtpNotice, NoticeTemplate{Subject: "Code", Text: "{{.Passcode}}"}),
	)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if err := nm.Send(TwofaEmailOtpNotice, NotificationData{To: "a@example.com", Data: map[string]string{"Passcode": "111111"}}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if mock.Count(TwofaEmailOtpNotice) != 1 {
		t.Errorf("Expected one notification, got %d", mock.Count(TwofaEmailOtpNotice))
	}
}
