package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for remsync.
// Command-line flags override the connection fields per invocation.
type Config struct {
	// Device address. The USB network address is the factory default.
	Host string `env:"REMARKABLE_HOST" envDefault:"10.11.99.1"`

	// SSH login for the device. The tablet ships with a root account
	// whose password is shown in its settings screen.
	SSHUser     string `env:"REMARKABLE_SSH_USER" envDefault:"root"`
	SSHPort     int    `env:"REMARKABLE_SSH_PORT" envDefault:"22"`
	SSHKey      string `env:"REMARKABLE_SSH_KEY"`
	SSHPassword string `env:"REMARKABLE_SSH_PASSWORD"`

	// DataDir is the document store location, relative to the ssh
	// user's home directory on the device.
	DataDir string `env:"REMARKABLE_DATA_DIR" envDefault:".local/share/remarkable/xochitl"`

	// Exclude holds path patterns pruned from every push and pull.
	Exclude []string `env:"REMSYNC_EXCLUDE" envSeparator:","`

	// FetchWorkers bounds concurrent metadata reads during a snapshot
	// fetch.
	FetchWorkers int `env:"REMSYNC_FETCH_WORKERS" envDefault:"8"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// MCP server settings.
	MCPListenAddr string `env:"REMSYNC_MCP_ADDR" envDefault:"localhost:8090"`
	MCPToken      string `env:"REMSYNC_MCP_TOKEN"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the device password to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Resolve the key path once so later chdirs (staging directories,
	// pull destinations) cannot change what it points at.
	if cfg.SSHKey != "" {
		absKey, err := filepath.Abs(cfg.SSHKey)
		if err != nil {
			return nil, fmt.Errorf("resolving ssh key to absolute path: %w", err)
		}

		cfg.SSHKey = absKey
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Host == "" {
		return fmt.Errorf("REMARKABLE_HOST must not be empty")
	}

	if c.SSHPort < 1 || c.SSHPort > 65535 {
		return fmt.Errorf("REMARKABLE_SSH_PORT must be between 1 and 65535, got %d", c.SSHPort)
	}

	if c.FetchWorkers < 1 {
		return fmt.Errorf("REMSYNC_FETCH_WORKERS must be at least 1, got %d", c.FetchWorkers)
	}

	if c.DataDir == "" {
		return fmt.Errorf("REMARKABLE_DATA_DIR must not be empty")
	}

	return nil
}

// SSHAddr returns the host:port the control channel dials.
func (c *Config) SSHAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.SSHPort))
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
