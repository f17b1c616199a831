package card

import (
	"strings"

	"github.com/google/uuid"
)

// CodeLength is the fixed length of every card code.
const CodeLength = 32

// GenerateCode returns an opaque card code with 128 bits of entropy.
// The optional prefix is prepended and the result truncated to CodeLength,
// matching codes generated by earlier releases.
func GenerateCode(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	code := prefix + raw
	if len(code) > CodeLength {
		code = code[:CodeLength]
	}
	return code
}
