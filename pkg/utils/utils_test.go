package utils

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"john.doe@example.com", "j***e@example.com"},
		{"john@example.com", "j***n@example.com"},
		{"ab@example.com", "a*b@example.com"},
		{"a@example.com", "a@example.com"},
		{"not-an-email", "not-an-email"},
		{"@example.com", "@example.com"},
		{"", ""},
		{"élodie@example.fr", "é***e@example.fr"},
		{"josé@example.com", "j***é@example.com"},
		{"用户@example.cn", "用*户@example.cn"},
		{"ü@example.de", "ü@example.de"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := MaskEmail(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
