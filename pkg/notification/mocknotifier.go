package notification

import "sync"

// MockNotifier records notifications instead of delivering them.
type MockNotifier struct {
	mu                sync.Mutex
	SentNotifications []NotificationData
	SentTypes         []NoticeType
	Err               error // returned from Send when set
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, err := template.Render(notification); err != nil {
		return err
	}
	m.SentNotifications = append(m.SentNotifications, notification)
	m.SentTypes = append(m.SentTypes, noticeType)
	return nil
}

// Last returns the most recent notification of the given type.
func (m *MockNotifier) Last(noticeType NoticeType) (NotificationData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.SentTypes) - 1; i >= 0; i-- {
		if m.SentTypes[i] == noticeType {
			return m.SentNotifications[i], true
		}
	}
	return NotificationData{}, false
}

// Count returns how many notifications of the given type were sent.
func (m *MockNotifier) Count(noticeType NoticeType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.SentTypes {
		if t == noticeType {
			n++
		}
	}
	return n
}

// SetErr makes subsequent sends fail with err.
func (m *MockNotifier) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}
