package utils

import "strings"

// MaskEmail hides the middle of the local part of an email address.
//
//	MaskEmail("john@example.com") // "j***n@example.com"
//	MaskEmail("ab@example.com")   // "a*b@example.com"
//	MaskEmail("a@example.com")    // "a@example.com"
//
// Characters, not bytes, are kept so non-ASCII addresses stay valid UTF-8.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local, domain := []rune(email[:at]), email[at:]

	switch len(local) {
	case 1:
		return string(local) + domain
	case 2:
		return string(local[0]) + "*" + string(local[1]) + domain
	default:
		return string(local[0]) + "***" + string(local[len(local)-1]) + domain
	}
}
