package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dmitrijs2005/liferepo/internal/flagx"
	"github.com/dmitrijs2005/liferepo/internal/timex"
)

// FileConfig is the on-disk shape of the configuration, shared by the JSON
// and TOML loaders. Intervals use timex.Duration so they may be written as
// "3s" strings.
type FileConfig struct {
	APIURL              string         `json:"api_url" toml:"api_url"`
	DatabasePath        string         `json:"database_path" toml:"database_path"`
	BatchSize           int            `json:"batch_size" toml:"batch_size"`
	MaxUploadFileSize   int64          `json:"max_upload_file_size" toml:"max_upload_file_size"`
	RequestTimeout      timex.Duration `json:"request_timeout" toml:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" toml:"online_check_interval"`
	LogLevel            string         `json:"log_level" toml:"log_level"`
}

// parseFile overlays cfg with the file named by -c/-config. Only keys set in
// the file override the current values. The format follows the extension:
// .toml is TOML, anything else JSON.
func parseFile(cfg *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc FileConfig) apply(cfg *Config) {
	if fc.APIURL != "" {
		cfg.APIURL = fc.APIURL
	}
	if fc.DatabasePath != "" {
		cfg.DatabasePath = fc.DatabasePath
	}
	if fc.BatchSize != 0 {
		cfg.BatchSize = fc.BatchSize
	}
	if fc.MaxUploadFileSize != 0 {
		cfg.MaxUploadFileSize = fc.MaxUploadFileSize
	}
	if fc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
}
