package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the server.
//
// Values are layered: defaults, then the environment (a .env file is loaded
// first if present), then command-line flags.
type Config struct {
	Addr            string
	DatabaseDSN     string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// LoadDefaults populates Config with development defaults.
// DatabaseDSN has no default and must be provided.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.ShutdownTimeout = 10 * time.Second
}

// loadConfig builds a Config from defaults, environment and args
// (usually os.Args[1:]).
func loadConfig(args []string) (*Config, error) {
	_ = godotenv.Load() // loads .env into environment variables (safe to ignore error)

	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	if cfg.DatabaseDSN == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	return cfg, nil
}

func parseEnv(cfg *Config) error {
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

// parseFlags overlays command-line flags:
//
//	-a string     listen address (e.g. ":8080")
//	-d string     PostgreSQL DSN
//	-l string     log level (debug, info, warn, error)
//	-f string     log format (json, text)
//	-t duration   graceful shutdown timeout
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("users", flag.ContinueOnError)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format (json or text)")
	fs.DurationVar(&cfg.ShutdownTimeout, "t", cfg.ShutdownTimeout, "graceful shutdown timeout")

	return fs.Parse(args)
}
