package identity

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/width"

	"github.com/dmitrijs2005/readersync/internal/common"
)

// GeneratePairingCode draws a fresh code from crypto/rand.
func GeneratePairingCode() (string, error) {
	return generateCode(rand.Reader)
}

// generateCode picks each character independently from the alphabet.
// The alphabet has 32 symbols, so masking a random byte is unbiased.
func generateCode(r io.Reader) (string, error) {
	buf := make([]byte, common.SyncCodeLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = common.SyncCodeAlphabet[int(b)&(len(common.SyncCodeAlphabet)-1)]
	}
	return string(out), nil
}

// NormalizeCode folds full-width characters to ASCII, trims surrounding
// space and uppercases. It does not validate.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(width.Fold.String(s)))
}

// ValidateCode reports whether code is exactly six characters from the
// pairing alphabet. Codes containing 0, 1, I or O are rejected even though
// they look alphanumeric, since no generated code can contain them. Input
// such as "abc123" therefore fails here instead of reaching the transport
// as a lookup that can never match.
func ValidateCode(code string) error {
	if len(code) != common.SyncCodeLength {
		return common.ErrInvalidSyncCode
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(common.SyncCodeAlphabet, code[i]) < 0 {
			return common.ErrInvalidSyncCode
		}
	}
	return nil
}

// ParseCode normalizes user input and validates the result.
func ParseCode(input string) (string, error) {
	code := NormalizeCode(input)
	if err := ValidateCode(code); err != nil {
		return "", err
	}
	return code, nil
}
