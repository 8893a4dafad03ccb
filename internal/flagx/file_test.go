package flagx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/readersync/internal/timex"
)

type sample struct {
	Addr    string         `json:"addr" yaml:"addr"`
	Timeout timex.Duration `json:"timeout" yaml:"timeout"`
}

func TestDecodeConfigFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "c.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"addr":":1","timeout":"2s"}`), 0o600))
	var j sample
	require.NoError(t, DecodeConfigFile(jsonPath, &j))
	assert.Equal(t, ":1", j.Addr)
	assert.Equal(t, 2*time.Second, j.Timeout.Duration)

	yamlPath := filepath.Join(dir, "c.YML")
	require.NoError(t, os.WriteFile(yamlPath, []byte("addr: \":2\"\ntimeout: 150ms\n"), 0o600))
	var y sample
	require.NoError(t, DecodeConfigFile(yamlPath, &y))
	assert.Equal(t, ":2", y.Addr)
	assert.Equal(t, 150*time.Millisecond, y.Timeout.Duration)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	require.Error(t, DecodeConfigFile(bad, &j))

	require.Error(t, DecodeConfigFile(filepath.Join(dir, "missing.json"), &j))
}
