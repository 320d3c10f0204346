package notification

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// NoticeType identifies a kind of message, e.g. "twofa_email_otp".
type NoticeType string

const (
	TwofaEmailOtpNotice   NoticeType = "twofa_email_otp"
	TwofaAdminResetNotice NoticeType = "twofa_admin_reset"
)

// NoticeTemplate holds the subject and bodies for one notice type on one system.
// Text and Html are Go templates executed against NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Rendered is a NoticeTemplate after template execution.
type Rendered struct {
	Subject string
	Text    string
	Html    string
}

// Render executes the template bodies with the notification data.
func (t NoticeTemplate) Render(notification NotificationData) (Rendered, error) {
	out := Rendered{Subject: t.Subject}
	if notification.Subject != "" {
		out.Subject = notification.Subject
	}

	if t.Text != "" {
		tmpl, err := texttemplate.New("text").Option("missingkey=zero").Parse(t.Text)
		if err != nil {
			return Rendered{}, err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, notification.Data); err != nil {
			return Rendered{}, err
		}
		out.Text = buf.String()
	} else {
		out.Text = notification.Body
	}

	if t.Html != "" {
		tmpl, err := htmltemplate.New("html").Option("missingkey=zero").Parse(t.Html)
		if err != nil {
			return Rendered{}, err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, notification.Data); err != nil {
			return Rendered{}, err
		}
		out.Html = buf.String()
	}

	return out, nil
}
