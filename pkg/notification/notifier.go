package notification

type NotificationData struct {
	To      string            // Recipient address
	Subject string            // Optional: overrides the template subject
	Body    string            // Optional: plain text used when the template has no text part
	Data    map[string]string // Template values
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
