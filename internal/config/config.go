// Package config loads the wallet daemon's configuration from environment
// variables, an optional .env file, and command-line flag overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all settings the daemon needs to start serving.
type Config struct {
	// Endpoint is the externally advertised base URL, reported in the
	// daemon's startup log. It does not affect what address the server
	// binds to.
	Endpoint string

	// IPAddress and Port are the bind address for the HTTP surface.
	IPAddress string
	Port      int

	// Threads is the configured worker count. It is loaded and overridable
	// by flag, but nothing past configuration loading reads it: the
	// coordinator does not start worker tasks of its own.
	Threads int

	// SQLitePath is the path to the wallet's sqlite database file.
	SQLitePath string

	// Seed and Nonce configure the deterministic randomness mode (C9). Seed
	// empty means production cryptographic mode.
	Seed  string
	Nonce string
}

const (
	envEndpoint   = "COSMOS_WALLET_ENDPOINT"
	envIPAddress  = "COSMOS_WALLET_IP_ADDRESS"
	envPort       = "COSMOS_WALLET_PORT_NUMBER"
	envThreads    = "COSMOS_THREADS"
	envSQLitePath = "COSMOS_SQLITE_PATH"
	envSeed       = "COSMOS_SEED"
	envNonce      = "COSMOS_NONCE"
)

// Default returns the configuration used when no environment variable or
// flag overrides a field.
func Default() *Config {
	return &Config{
		Endpoint:   "http://127.0.0.1:7001",
		IPAddress:  "127.0.0.1",
		Port:       7001,
		Threads:    1,
		SQLitePath: "cosmos-wallet.sqlite",
	}
}

// Load reads a .env file (if present) into the process environment, then
// builds a Config from COSMOS_* environment variables, falling back to
// Default for anything unset. envPath may be empty, in which case ".env" in
// the working directory is tried and silently skipped if absent.
func Load(envPath string) (*Config, error) {
	if envPath == "" {
		envPath = ".env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envPath, err)
		}
	}

	cfg := Default()

	if v := os.Getenv(envEndpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv(envIPAddress); v != "" {
		cfg.IPAddress = v
	}
	if v := os.Getenv(envPort); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid port %q: %w", envPort, v, err)
		}
		cfg.Port = n
	}
	if v := os.Getenv(envThreads); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid thread count %q: %w", envThreads, v, err)
		}
		cfg.Threads = n
	}
	if v := os.Getenv(envSQLitePath); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv(envSeed); v != "" {
		cfg.Seed = v
	}
	if v := os.Getenv(envNonce); v != "" {
		cfg.Nonce = v
	}

	return cfg, nil
}

// Addr returns the host:port string suitable for net.Listen.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.IPAddress, c.Port)
}

// ApplyFlags overrides cfg's fields with any non-zero-value flag the caller
// parsed, mirroring the precedence flags have over file/env values.
func (c *Config) ApplyFlags(ipAddress string, port int, sqlitePath string, threads int) {
	if ipAddress != "" {
		c.IPAddress = ipAddress
	}
	if port != 0 {
		c.Port = port
	}
	if sqlitePath != "" {
		c.SQLitePath = sqlitePath
	}
	if threads != 0 {
		c.Threads = threads
	}
}
