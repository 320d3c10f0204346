// Package identity resolves user ids to the email address and display name used
// when addressing 2FA notifications.
package identity
