package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailNotifier_BuildMessage(t *testing.T) {
	notifier, err := NewEmailNotifier(SMTPConfig{
		Host: "localhost",
		Port: 2525,
		From: "noreply@example.com",
	})
	require.NoError(t, err)

	msg, err := notifier.buildMessage(NotificationData{
		To:   "user@example.com",
		Data: map[string]string{"Passcode": "123456"},
	}, NoticeTemplate{Subject: "Code", Text: "Code {{.Passcode}}"})
	require.NoError(t, err)
	require.Len(t, msg.GetTo(), 1)
	assert.Equal(t, "user@example.com", msg.GetTo()[0].Address)

	_, err = notifier.buildMessage(NotificationData{}, NoticeTemplate{Subject: "Code", Text: "x"})
	assert.Error(t, err)
}

func TestNewEmailNotifier_RequiresHost(t *testing.T) {
	_, err := NewEmailNotifier(SMTPConfig{})
	assert.Error(t, err)
}
