// Package privacy keeps caller PII out of logs.
//
// Phone numbers, email addresses and dates of birth are logged as a short
// keyed BLAKE2b digest so that log lines for the same caller can still be
// correlated without storing the raw value.
package privacy

import (
	"encoding/hex"
	"log/slog"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const digestBytes = 8

// Hasher digests PII values. The zero value hashes without a key.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher keyed with secret. Keys longer than 64 bytes are truncated.
func NewHasher(secret string) Hasher {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	return Hasher{key: key}
}

// Hash returns a hex digest of the normalised value, or "" for blank input.
func (h Hasher) Hash(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return ""
	}
	mac, err := blake2b.New(digestBytes, h.key)
	if err != nil {
		// only returned for an oversized key, which NewHasher prevents
		return ""
	}
	mac.Write([]byte(normalized))
	return hex.EncodeToString(mac.Sum(nil))
}

// Attr builds a log attribute carrying the digest instead of the value.
func (h Hasher) Attr(key, value string) slog.Attr {
	return slog.String(key+"_hash", h.Hash(value))
}

var defaultHasher Hasher

// SetDefaultKey configures the package-level hasher used by Attr.
func SetDefaultKey(secret string) {
	defaultHasher = NewHasher(secret)
}

// Attr hashes value with the package-level hasher.
func Attr(key, value string) slog.Attr {
	return defaultHasher.Attr(key, value)
}
