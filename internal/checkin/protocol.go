package checkin

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const protocolAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewProtocolNumber generates the human-presentable receipt returned to
// the student: base-36 of the current unix milliseconds plus a random
// four-character suffix, e.g. "MF1Q8ZKC-7T4D". It is generated at record
// creation and is distinct from the record's internal id.
func NewProtocolNumber(now time.Time) (string, error) {
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("protocol suffix: %w", err)
	}
	suffix := make([]byte, len(buf))
	for i, b := range buf {
		suffix[i] = protocolAlphabet[int(b)%len(protocolAlphabet)]
	}

	return stamp + "-" + string(suffix), nil
}
