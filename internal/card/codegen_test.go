package card

import (
	"strings"
	"testing"
)

func TestGenerateCodeLength(t *testing.T) {
	for _, prefix := range []string{"", "CARD_", "VIP"} {
		code := GenerateCode(prefix)
		if len(code) != CodeLength {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), CodeLength)
		}
		if prefix != "" && !strings.HasPrefix(code, prefix) {
			t.Fatalf("code %q missing prefix %q", code, prefix)
		}
	}
}

func TestGenerateCodeUniqueness(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		code := GenerateCode("CARD_")
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code after %d generations: %q", i, code)
		}
		seen[code] = struct{}{}
	}
}
