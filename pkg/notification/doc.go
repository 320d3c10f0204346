// Package notification delivers templated notices through registered notifiers.
//
// A NotificationManager maps a NoticeType to a NoticeTemplate per
// NotificationSystem and hands the notification to the Notifier registered
// for that system. EmailNotifier sends over SMTP; MockNotifier records sends
// for tests.
//
// # Usage
//
//	nm, err := notification.NewNotificationManagerWithOptions(
//	    notification.WithSMTP(notification.SMTPConfig{
//	        Host: "smtp.example.com",
//	        Port: 587,
//	        TLS:  true,
//	        From: "noreply@example.com",
//	    }),
//	    notification.WithDefaultTemplates(),
//	)
//	if err != nil {
//	    return err
//	}
//
//	err = nm.Send(notification.TwofaEmailOtpNotice, notification.NotificationData{
//	    To: "user@example.com",
//	    Data: map[string]string{
//	        "DisplayName":      "Alice",
//	        "Passcode":         "123456",
//	        "ExpiresInMinutes": "10",
//	    },
//	})
//
// Templates are Go templates; Text uses text/template and Html uses
// html/template so values are escaped in HTML bodies.
package notification
