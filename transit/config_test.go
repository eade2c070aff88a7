package transit_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alovak/farecard/transit"
)

func TestDefaultConfig(t *testing.T) {
	config := transit.DefaultConfig()
	require.NoError(t, config.Validate())

	require.Equal(t, "127.0.0.1:5050", config.Server.Addr())
	require.Equal(t, 1024, config.Server.BufferSize)
	require.Equal(t, 5, config.Wallet.MaxAmountLength)
	require.Equal(t, transit.BackendSQLite, config.Ledger.Backend)
	require.Equal(t, "cards.db", config.Ledger.Path)

	fare, err := config.FareTable().FareFor("north")
	require.NoError(t, err)
	require.Equal(t, int64(30), fare)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "farecard.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv keeps overrides from the test environment out of the result.
func clearEnv(t *testing.T) {
	for _, k := range []string{"FARECARD_HOST", "FARECARD_PORT", "REPO_BACKEND", "DB_PATH", "DB_DSN", "ADMIN_ADDR", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
port = 6060
idle_timeout = "30s"
max_connections = 64

[ledger]
backend = "memory"

[wallet]
max_amount_length = 7

[log]
level = "debug"
format = "json"

[fares]
Harbor = 15
uptown = 40
`)

	config, err := transit.LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	require.Equal(t, "127.0.0.1", config.Server.Host)
	require.Equal(t, 6060, config.Server.Port)
	require.Equal(t, 30*time.Second, config.Server.IdleTimeout.Duration)
	require.Equal(t, 64, config.Server.MaxConnections)
	require.Equal(t, transit.BackendMemory, config.Ledger.Backend)
	require.Equal(t, 7, config.Wallet.MaxAmountLength)
	require.Equal(t, []string{"harbor", "uptown"}, config.FareTable().Regions())

	_, err = config.NewLogger()
	require.NoError(t, err)
}

func TestLoadConfig_KeepsDefaultFares(t *testing.T) {
	clearEnv(t)
	config, err := transit.LoadConfig(writeConfig(t, "[server]\nport = 6061\n"))
	require.NoError(t, err)
	require.NoError(t, config.Validate())
	require.Len(t, config.FareTable().Regions(), 5)
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	_, err := transit.LoadConfig(writeConfig(t, "[server]\nprot = 1\n"))
	require.ErrorContains(t, err, "server.prot")
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("FARECARD_HOST", "0.0.0.0")
	t.Setenv("FARECARD_PORT", "7070")
	t.Setenv("REPO_BACKEND", "pg")
	t.Setenv("DB_DSN", "postgres://localhost/farecard")
	t.Setenv("ADMIN_ADDR", "")
	t.Setenv("LOG_LEVEL", "warn")

	config, err := transit.LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:7070", config.Server.Addr())
	require.Equal(t, transit.BackendPostgres, config.Ledger.Backend)
	require.Equal(t, "postgres://localhost/farecard", config.Ledger.DSN)
	require.Equal(t, "127.0.0.1:9090", config.Admin.Addr)
	require.Equal(t, "warn", config.Log.Level)

	t.Setenv("FARECARD_PORT", "http")
	_, err = transit.LoadConfig("")
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *transit.Config)
	}{
		{"port", func(c *transit.Config) { c.Server.Port = 70000 }},
		{"buffer", func(c *transit.Config) { c.Server.BufferSize = 0 }},
		{"max connections", func(c *transit.Config) { c.Server.MaxConnections = -1 }},
		{"amount length low", func(c *transit.Config) { c.Wallet.MaxAmountLength = 0 }},
		{"amount length high", func(c *transit.Config) { c.Wallet.MaxAmountLength = 19 }},
		{"backend", func(c *transit.Config) { c.Ledger.Backend = "mongo" }},
		{"sqlite path", func(c *transit.Config) { c.Ledger.Path = "" }},
		{"pg dsn", func(c *transit.Config) { c.Ledger.Backend = transit.BackendPostgres }},
		{"log level", func(c *transit.Config) { c.Log.Level = "loud" }},
		{"log format", func(c *transit.Config) { c.Log.Format = "xml" }},
		{"negative fare", func(c *transit.Config) { c.Fares["north"] = -1 }},
		{"no fares", func(c *transit.Config) { c.Fares = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := transit.DefaultConfig()
			tt.modify(config)
			require.Error(t, config.Validate())
		})
	}
}
