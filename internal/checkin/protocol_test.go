package checkin

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNewProtocolNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	pn, err := NewProtocolNumber(now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	pattern := regexp.MustCompile(`^[0-9A-Z]+-[0-9A-Z]{4}$`)
	if !pattern.MatchString(pn) {
		t.Fatalf("unexpected protocol number %q", pn)
	}

	stamp := strings.SplitN(pn, "-", 2)[0]
	millis, err := strconv.ParseInt(strings.ToLower(stamp), 36, 64)
	if err != nil {
		t.Fatalf("stamp %q is not base36: %v", stamp, err)
	}
	if millis != now.UnixMilli() {
		t.Fatalf("stamp decodes to %d, want %d", millis, now.UnixMilli())
	}
}

func TestNewProtocolNumberDistinctAcrossTime(t *testing.T) {
	a, err := NewProtocolNumber(time.UnixMilli(1_700_000_000_000))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := NewProtocolNumber(time.UnixMilli(1_700_000_000_001))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a == b {
		t.Fatalf("protocol numbers for different instants should differ: %q", a)
	}
}
