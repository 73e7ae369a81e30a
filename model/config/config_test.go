package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Listen)
	assert.Equal(t, []string{"10.", "192.168.", "203.0.113."}, cfg.Rules.Prefixes)
	assert.Equal(t, []string{"::"}, cfg.Rules.Substrings)
	assert.Equal(t, 30, cfg.Rules.MaxLength)
	assert.False(t, cfg.RateLimit.Enabled())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classifier.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: 127.0.0.1:9000
shutdown_timeout: 3s
rate_limit:
  per_second: 5
  burst: 10
rules:
  prefixes: ["172.16."]
  max_length: 0
`), 0o600))

	t.Setenv("CLASSIFIER_MAX_CONNECTIONS", "64")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--listen", "127.0.0.1:9100"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.Listen)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int32(64), cfg.MaxConnections)
	assert.True(t, cfg.RateLimit.Enabled())
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, []string{"172.16."}, cfg.Rules.Prefixes)
	assert.Equal(t, []string{"::"}, cfg.Rules.Substrings)
	assert.Zero(t, cfg.Rules.MaxLength)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classifier.yml")
	require.NoError(t, os.WriteFile(path, []byte("listen: nowhere\nrate_limit:\n  per_second: -1\n"), 0o600))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Listen")
	assert.Contains(t, err.Error(), "PerSecond")
}
