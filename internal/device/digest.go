// Package device derives a stable, non-identifying fingerprint from
// whatever environment signals the client could obtain. The digest is
// stored for downstream fraud analysis and never gates acceptance.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Signals are the optional environment signals, in hashing order.
// Missing signals stay nil and are omitted from the digest, never
// fabricated.
type Signals struct {
	UserAgent           *string `json:"user_agent,omitempty"`
	Language            *string `json:"language,omitempty"`
	Screen              *string `json:"screen,omitempty"`
	HardwareConcurrency *string `json:"hardware_concurrency,omitempty"`
	Timezone            *string `json:"timezone,omitempty"`
	CanvasProbe         *string `json:"canvas_probe,omitempty"`
	WebGLProbe          *string `json:"webgl_probe,omitempty"`
}

const delimiter = "|"

// Digest joins the present signal values in declaration order with a
// fixed delimiter and returns the hex SHA-256. Identical signal tuples
// always yield the identical digest; an empty tuple yields "".
func (s Signals) Digest() string {
	values := s.ordered()
	if len(values) == 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.Join(values, delimiter)))
	return hex.EncodeToString(sum[:])
}

// Empty reports whether no signal was obtainable.
func (s Signals) Empty() bool {
	return len(s.ordered()) == 0
}

func (s Signals) ordered() []string {
	var values []string
	for _, v := range []*string{
		s.UserAgent, s.Language, s.Screen, s.HardwareConcurrency,
		s.Timezone, s.CanvasProbe, s.WebGLProbe,
	} {
		if v != nil {
			values = append(values, *v)
		}
	}
	return values
}
