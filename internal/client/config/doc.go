// Package config loads runtime configuration for the liferepo CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .toml are read as TOML, everything else as JSON.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the annotation API
//	-d string   path of the local SQLite database
//	-b int      upload batch size
//	-t int      request timeout (seconds)
//	-i int      online status check interval (seconds)
//	-l string   log level
//
// # File schema
//
// Intervals use timex.Duration, so they can be strings like "3s" or integer
// nanoseconds (JSON only):
//
//	{
//	  "api_url": "http://127.0.0.1:8000",
//	  "database_path": "liferepo.db",
//	  "batch_size": 12,
//	  "max_upload_file_size": 10000000,
//	  "request_timeout": "30s",
//	  "online_check_interval": "3s",
//	  "log_level": "info"
//	}
//
// The same keys work in TOML.
//
// Environment variables are not read.
package config
