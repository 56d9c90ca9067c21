package logger

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// MaskedContact carries contact data that is safe to write to logs.
type MaskedContact struct {
	Email  string
	Phone  string
	IPHash string
}

// PIIMasker masks submitter contact data before it reaches a log line.
// IP addresses are replaced by a keyed BLAKE2b fingerprint so repeat
// offenders stay correlatable without storing the address itself.
type PIIMasker struct {
	key []byte
}

// NewPIIMasker creates a masker. Keys longer than 64 bytes are truncated.
func NewPIIMasker(key string) *PIIMasker {
	k := []byte(key)
	if len(k) > blake2b.Size {
		k = k[:blake2b.Size]
	}
	return &PIIMasker{key: k}
}

// Mask returns the masked form of the given contact values.
func (m *PIIMasker) Mask(email, phone, ip string) MaskedContact {
	return MaskedContact{
		Email:  MaskEmail(email),
		Phone:  MaskPhone(phone),
		IPHash: m.Fingerprint(ip),
	}
}

// Fingerprint returns a short keyed hash of value, or "" for empty input.
func (m *PIIMasker) Fingerprint(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var key []byte
	if m != nil {
		key = m.key
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return ""
	}
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// MaskEmail keeps the first two characters of the local part and the domain.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	local, domain := email[:at], email[at+1:]
	if len(local) <= 2 {
		return local[:1] + "***@" + domain
	}
	return local[:2] + "***@" + domain
}

// MaskPhone keeps only the last four digits.
func MaskPhone(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) == 0 {
		return ""
	}
	if len(digits) <= 4 {
		return "***"
	}
	return "***" + string(digits[len(digits)-4:])
}
