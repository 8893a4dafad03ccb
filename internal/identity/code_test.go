package identity

import (
	"bytes"
	"crypto/rand"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/readersync/internal/common"
)

func TestGeneratePairingCode_ShapeAndAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GeneratePairingCode()
		require.NoError(t, err)
		require.Len(t, code, common.SyncCodeLength)
		require.NoError(t, ValidateCode(code), code)
		require.False(t, strings.ContainsAny(code, "01IO"), code)
	}
}

func TestGenerateCode_MapsBytesOntoAlphabet(t *testing.T) {
	code, err := generateCode(bytes.NewReader([]byte{0, 1, 31, 32, 255, 8}))
	require.NoError(t, err)
	assert.Equal(t, "AB9A9J", code)
}

func TestGenerateCode_ShortRead(t *testing.T) {
	_, err := generateCode(bytes.NewReader([]byte{1, 2}))
	require.Error(t, err)
}

func TestGenerateCode_RoughlyUniform(t *testing.T) {
	counts := make(map[byte]int)
	const n = 20000
	for i := 0; i < n/common.SyncCodeLength; i++ {
		code, err := generateCode(rand.Reader)
		require.NoError(t, err)
		for j := 0; j < len(code); j++ {
			counts[code[j]]++
		}
	}
	require.Len(t, counts, len(common.SyncCodeAlphabet))
	expected := float64(n) / float64(len(common.SyncCodeAlphabet))
	for c, got := range counts {
		assert.InDelta(t, expected, float64(got), expected*0.35, "char %q", c)
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc123", "ABC123"},
		{"  xyz789\n", "XYZ789"},
		{"ＡＢＣ２３４", "ABC234"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCode(tt.in), tt.in)
	}
}

func TestValidateCode(t *testing.T) {
	tests := []struct {
		code string
		ok   bool
	}{
		{"ABC234", true},
		{"ZZZZZZ", true},
		{"ABC23", false},
		{"ABC2345", false},
		{"AB01IO", false},
		{"abc234", false},
		{"ABC-34", false},
		{"", false},
	}
	for _, tt := range tests {
		err := ValidateCode(tt.code)
		if tt.ok {
			assert.NoError(t, err, tt.code)
		} else {
			assert.True(t, errors.Is(err, common.ErrInvalidSyncCode), tt.code)
		}
	}
}

func TestParseCode(t *testing.T) {
	code, err := ParseCode(" abc234 ")
	require.NoError(t, err)
	assert.Equal(t, "ABC234", code)

	_, err = ParseCode("abc12")
	require.ErrorIs(t, err, common.ErrInvalidSyncCode)
}

func TestParseCode_RejectsExcludedGlyphsInWellShapedInput(t *testing.T) {
	for _, in := range []string{"abc123", "ABC12O", "IOIOIO", "000000"} {
		_, err := ParseCode(in)
		require.ErrorIs(t, err, common.ErrInvalidSyncCode, in)
	}
}
