package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func Test_parseFile_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := writeTemp(t, dir, "cfg.json", `{"api_url":"http://json:1","batch_size":3,"online_check_interval":"10s","request_timeout":2000000000}`)
		os.Args = []string{"testbin", "-config", path}

		cfg := defaults()
		require.NoError(t, parseFile(cfg))

		assert.Equal(t, "http://json:1", cfg.APIURL)
		assert.Equal(t, 3, cfg.BatchSize)
		assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "liferepo.db", cfg.DatabasePath, "absent keys keep defaults")
	})

	t.Run("toml", func(t *testing.T) {
		path := writeTemp(t, dir, "cfg.toml", "api_url = \"http://toml:2\"\ndatabase_path = \"/var/lib/lr.db\"\nmax_upload_file_size = 500\nrequest_timeout = \"1m\"\nlog_level = \"warn\"\n")
		os.Args = []string{"testbin", "-c", path}

		cfg := defaults()
		require.NoError(t, parseFile(cfg))

		assert.Equal(t, "http://toml:2", cfg.APIURL)
		assert.Equal(t, "/var/lib/lr.db", cfg.DatabasePath)
		assert.Equal(t, int64(500), cfg.MaxUploadFileSize)
		assert.Equal(t, time.Minute, cfg.RequestTimeout)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, 12, cfg.BatchSize)
	})

	t.Run("no config flag leaves values alone", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{APIURL: "http://defaults:1234", OnlineCheckInterval: 42 * time.Second}
		require.NoError(t, parseFile(cfg))

		assert.Equal(t, "http://defaults:1234", cfg.APIURL)
		assert.Equal(t, 42*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("flags override file", func(t *testing.T) {
		path := writeTemp(t, dir, "both.json", `{"api_url":"http://file:1","batch_size":3}`)
		os.Args = []string{"testbin", "-c", path, "-b", "7"}

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "http://file:1", cfg.APIURL)
		assert.Equal(t, 7, cfg.BatchSize)
	})

	t.Run("invalid json", func(t *testing.T) {
		bad := writeTemp(t, dir, "bad.json", `{ this is not valid json`)
		os.Args = []string{"testbin", "-config", bad}

		require.Error(t, parseFile(&Config{}))
	})

	t.Run("bad duration", func(t *testing.T) {
		bad := writeTemp(t, dir, "bad.toml", "request_timeout = \"soon\"\n")
		os.Args = []string{"testbin", "-config", bad}

		require.Error(t, parseFile(&Config{}))
	})

	t.Run("missing file", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}

		require.Error(t, parseFile(&Config{}))
	})
}
