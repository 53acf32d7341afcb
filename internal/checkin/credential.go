package checkin

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"checkin/internal/session"
)

// ErrInvalidEntryCode is returned on hash mismatch. The message is
// deliberately vague about which part was wrong.
var ErrInvalidEntryCode = errors.New("incorrect password")

// NormalizeEntryCode trims and uppercases so that case and surrounding
// whitespace never affect the comparison.
func NormalizeEntryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// HashEntryCode returns the hex SHA-256 of the normalized code. Sessions
// store only this hash, never the plaintext.
func HashEntryCode(code string) string {
	sum := sha256.Sum256([]byte(NormalizeEntryCode(code)))
	return hex.EncodeToString(sum[:])
}

// ValidateEntryCode compares the user-entered code against the session's
// stored hash.
func ValidateEntryCode(s *session.Session, code string) error {
	if HashEntryCode(code) != s.EntryCodeHash {
		return ErrInvalidEntryCode
	}
	return nil
}
