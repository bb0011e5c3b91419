package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/liferepo/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   base URL of the annotation API
//	-d string   path of the local SQLite database
//	-b int      upload batch size
//	-t int      request timeout (seconds)
//	-i int      online check interval (seconds)
//	-l string   log level (debug, info, warn, error)
//
// os.Args is filtered with flagx.FilterArgs first so the config file flag
// does not trip the parser.
func parseFlags(cfg *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-b", "-t", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIURL, "a", cfg.APIURL, "base URL of the annotation API")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	fs.IntVar(&cfg.BatchSize, "b", cfg.BatchSize, "upload batch size")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	return nil
}
