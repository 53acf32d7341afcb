package checkin

import (
	"errors"
	"testing"

	"checkin/internal/session"
)

func TestValidateEntryCodeNormalization(t *testing.T) {
	sess := &session.Session{EntryCodeHash: HashEntryCode("ABC123")}

	valid := []string{"ABC123", "abc123", " ABC123 ", "\tabc123\n", "AbC123"}
	for _, code := range valid {
		if err := ValidateEntryCode(sess, code); err != nil {
			t.Fatalf("code %q should validate: %v", code, err)
		}
	}

	invalid := []string{"", "ABC124", "ABC 123", "123ABC"}
	for _, code := range invalid {
		if err := ValidateEntryCode(sess, code); !errors.Is(err, ErrInvalidEntryCode) {
			t.Fatalf("code %q should fail with ErrInvalidEntryCode, got %v", code, err)
		}
	}
}

func TestHashEntryCodeNeverStoresPlaintext(t *testing.T) {
	hash := HashEntryCode("secret1")
	if hash == "SECRET1" || hash == "secret1" {
		t.Fatal("hash must not equal the code")
	}
	if len(hash) != 64 {
		t.Fatalf("expected hex sha256, got %d chars", len(hash))
	}
	if HashEntryCode(" secret1 ") != hash {
		t.Fatal("hash must be computed over the normalized code")
	}
}
