package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var pinPattern = regexp.MustCompile(`^[A-Za-z]{4}\d{2}$`)

// ValidPIN accepts four letters followed by two digits, e.g. "abcd12".
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// PINHasher derives the stored lookup key for a PIN. The PIN is the only
// login credential, so the hash must be deterministic to be searchable.
type PINHasher struct {
	Pepper []byte
}

func (h PINHasher) Hash(pin string) string {
	mac := hmac.New(sha256.New, h.Pepper)
	mac.Write([]byte(strings.TrimSpace(pin)))
	return hex.EncodeToString(mac.Sum(nil))
}
