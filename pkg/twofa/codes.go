package twofa

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultTotpWindow       = 1
	DefaultBackupCodeCount  = 10
	DefaultBackupCodeLength = 8
	EmailOtpLength          = 6

	TotpPeriod = 30
	TotpDigits = 6

	secretSize = 20 // 160 bits
)

// backupCodeAlphabet leaves out 0/O and 1/I which are easy to misread.
const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func totpOpts(window uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    TotpPeriod,
		Skew:      window,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateSecret returns a fresh base32 TOTP secret backed by 160 random bits.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return secretEncoding.EncodeToString(buf), nil
}

// TotpNow returns the code for the time step containing at.
func TotpNow(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at.UTC(), totpOpts(0))
}

// TotpVerify accepts the code for the step containing at and window steps on either side.
// A malformed secret or code is reported as a mismatch.
func TotpVerify(secret, code string, at time.Time, window uint) bool {
	valid, err := totp.ValidateCustom(strings.TrimSpace(code), secret, at.UTC(), totpOpts(window))
	return valid && err == nil
}

// ProvisioningURI builds the otpauth:// URI an authenticator app enrolls from.
func ProvisioningURI(secret, accountLabel, issuer string) (string, error) {
	raw, err := secretEncoding.DecodeString(strings.ToUpper(secret))
	if err != nil {
		return "", fmt.Errorf("invalid totp secret: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountLabel,
		Period:      TotpPeriod,
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build provisioning uri: %w", err)
	}
	return key.URL(), nil
}

// GenerateBackupCodes returns count distinct codes of length characters,
// formatted as two hyphen-joined groups (XXXX-XXXX for the default length).
func GenerateBackupCodes(count, length int) ([]string, error) {
	if count <= 0 || length < 2 {
		return nil, fmt.Errorf("invalid backup code parameters: count=%d length=%d", count, length)
	}
	// there must be at least count distinct codes of this length
	space := 1
	for i := 0; i < length && space < count; i++ {
		space *= len(backupCodeAlphabet)
	}
	if space < count {
		return nil, fmt.Errorf("invalid backup code parameters: only %d distinct codes of length %d, %d requested", space, length, count)
	}

	seen := make(map[string]struct{}, count)
	codes := make([]string, 0, count)
	for len(codes) < count {
		raw, err := randomString(backupCodeAlphabet, length)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		half := length / 2
		codes = append(codes, raw[:half]+"-"+raw[half:])
	}
	return codes, nil
}

// GenerateNumericOtp returns length uniformly random digits.
func GenerateNumericOtp(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid otp length: %d", length)
	}
	return randomString("0123456789", length)
}

func randomString(alphabet string, length int) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeCode trims, uppercases and strips hyphens and spaces so that
// "abcd-efgh" and "ABCDEFGH" hash to the same value.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer("-", "", " ", "").Replace(code)
}

// CodeHasher hashes backup codes and email OTPs. With an empty key it produces
// a plain SHA-256 digest, otherwise an HMAC-SHA256 keyed with the server secret.
type CodeHasher struct {
	key []byte
}

func NewCodeHasher(key string) CodeHasher {
	if key == "" {
		return CodeHasher{}
	}
	return CodeHasher{key: []byte(key)}
}

// Hash returns the hex digest of the normalized code.
func (h CodeHasher) Hash(code string) string {
	normalized := []byte(NormalizeCode(code))
	if len(h.key) == 0 {
		sum := sha256.Sum256(normalized)
		return hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, h.key)
	mac.Write(normalized)
	return hex.EncodeToString(mac.Sum(nil))
}

// Match reports whether code hashes to hash, in constant time.
func (h CodeHasher) Match(hash, code string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(h.Hash(code))) == 1
}

// CodeKind tags a presented code by its format.
type CodeKind int

const (
	CodeKindInvalid CodeKind = iota
	CodeKindTotp
	CodeKindBackup
)

func (k CodeKind) String() string {
	switch k {
	case CodeKindTotp:
		return "totp"
	case CodeKindBackup:
		return "backup"
	default:
		return "invalid"
	}
}

// ClassifyCode decides which verification path a code takes. Six digits is always a
// TOTP code; a normalized code of backupLength characters from the backup alphabet is
// a backup code. Anything else cannot verify.
func ClassifyCode(code string, backupLength int) CodeKind {
	normalized := NormalizeCode(code)
	if len(normalized) == TotpDigits && isDigits(normalized) {
		return CodeKindTotp
	}
	if len(normalized) == backupLength && inAlphabet(normalized, backupCodeAlphabet) {
		return CodeKindBackup
	}
	return CodeKindInvalid
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func inAlphabet(s, alphabet string) bool {
	for _, r := range s {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
