package transit

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/exp/slog"

	"github.com/alovak/farecard/internal/amount"
	"github.com/alovak/farecard/internal/fare"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "pg"
)

// Config is the configuration of the fare-card application
type Config struct {
	Server ServerConfig `toml:"server"`
	Admin  AdminConfig  `toml:"admin"`
	Ledger LedgerConfig `toml:"ledger"`
	Wallet WalletConfig `toml:"wallet"`
	Log    LogConfig    `toml:"log"`
	// Fares maps each region to the fare of an uncontracted ride there.
	Fares map[string]int64 `toml:"fares"`

	fareTable *fare.Table
}

type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	BufferSize     int      `toml:"buffer_size"`
	IdleTimeout    Duration `toml:"idle_timeout"`
	MaxConnections int      `toml:"max_connections"`
}

func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type AdminConfig struct {
	// Addr of the admin HTTP API; empty disables it.
	Addr string `toml:"addr"`
}

type LedgerConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
	DSN     string `toml:"dsn"`
}

type WalletConfig struct {
	MaxAmountLength int `toml:"max_amount_length"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration is a time.Duration read from strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func DefaultConfig() *Config {
	fares := make(map[string]int64, len(fare.DefaultFares))
	for region, price := range fare.DefaultFares {
		fares[region] = price
	}

	return &Config{
		Server: ServerConfig{
			Host:       "127.0.0.1",
			Port:       5050,
			BufferSize: 1024,
		},
		Admin: AdminConfig{
			Addr: "127.0.0.1:9090",
		},
		Ledger: LedgerConfig{
			Backend: BackendSQLite,
			Path:    "cards.db",
		},
		Wallet: WalletConfig{
			MaxAmountLength: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Fares: fares,
	}
}

// LoadConfig reads defaults, then the TOML file at path (if any), then
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		// a file-level fare table replaces the default one instead of merging
		config.Fares = nil
		md, err := toml.DecodeFile(path, config)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown config key %s in %s", undecoded[0], path)
		}
		if config.Fares == nil {
			config.Fares = DefaultConfig().Fares
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides settings from FARECARD_HOST, FARECARD_PORT,
// REPO_BACKEND, DB_PATH, DB_DSN, ADMIN_ADDR and LOG_LEVEL.
func (c *Config) ApplyEnv() error {
	c.Server.Host = getenv("FARECARD_HOST", c.Server.Host)
	if v := getenv("FARECARD_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FARECARD_PORT=%s: %w", v, err)
		}
		c.Server.Port = port
	}
	c.Ledger.Backend = getenv("REPO_BACKEND", c.Ledger.Backend)
	c.Ledger.Path = getenv("DB_PATH", c.Ledger.Path)
	c.Ledger.DSN = getenv("DB_DSN", c.Ledger.DSN)
	c.Admin.Addr = getenv("ADMIN_ADDR", c.Admin.Addr)
	c.Log.Level = getenv("LOG_LEVEL", c.Log.Level)
	return nil
}

// Validate checks the configuration and builds the fare table.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.BufferSize <= 0 {
		return fmt.Errorf("server buffer_size must be positive (got %d)", c.Server.BufferSize)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server max_connections must not be negative (got %d)", c.Server.MaxConnections)
	}
	if c.Server.IdleTimeout.Duration < 0 {
		return fmt.Errorf("server idle_timeout must not be negative (got %s)", c.Server.IdleTimeout)
	}
	if n := c.Wallet.MaxAmountLength; n < 1 || n > amount.MaxDigits {
		return fmt.Errorf("wallet max_amount_length must be 1..%d (got %d)", amount.MaxDigits, n)
	}

	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger path is required for %s backend", BackendSQLite)
		}
	case BackendPostgres:
		if c.Ledger.DSN == "" {
			return fmt.Errorf("DB_DSN is required for %s backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("unsupported ledger backend %q", c.Ledger.Backend)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}

	table, err := fare.NewTable(c.Fares)
	if err != nil {
		return fmt.Errorf("fares: %w", err)
	}
	c.fareTable = table

	return nil
}

// FareTable returns the table built by Validate.
func (c *Config) FareTable() *fare.Table {
	return c.fareTable
}

func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return l, fmt.Errorf("log level %q: %w", level, err)
	}
	return l, nil
}

// NewLogger builds the process logger described by the log section.
func (c *Config) NewLogger() (*slog.Logger, error) {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
