package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"github.com/alovak/farecard/transit"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringP("config", "c", "", "Path to a TOML config file")
	f.String("host", "", "Interface to listen on")
	f.Int("port", 0, "TCP port of the card protocol")
	f.String("backend", "", "Ledger backend: sqlite, pg or memory")
	f.String("db-path", "", "SQLite database file")
	f.String("dsn", "", "Postgres connection string")
	f.String("admin-addr", "", `Admin HTTP address ("off" disables it)`)
	f.String("log-level", "", "Log level: debug, info, warn or error")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fare-card server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	logger, err := config.NewLogger()
	if err != nil {
		return err
	}

	app := transit.NewApp(logger, config)
	if err := app.Start(); err != nil {
		return fmt.Errorf("starting app: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	logger.Info("received signal", slog.String("signal", sig.String()))

	app.Shutdown()
	return nil
}

// loadServeConfig layers explicitly set flags over the file and
// environment configuration.
func loadServeConfig(cmd *cobra.Command) (*transit.Config, error) {
	f := cmd.Flags()

	path, _ := f.GetString("config")
	config, err := transit.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if f.Changed("host") {
		config.Server.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		config.Server.Port, _ = f.GetInt("port")
	}
	if f.Changed("backend") {
		config.Ledger.Backend, _ = f.GetString("backend")
	}
	if f.Changed("db-path") {
		config.Ledger.Path, _ = f.GetString("db-path")
	}
	if f.Changed("dsn") {
		config.Ledger.DSN, _ = f.GetString("dsn")
	}
	if f.Changed("admin-addr") {
		addr, _ := f.GetString("admin-addr")
		if addr == "off" {
			addr = ""
		}
		config.Admin.Addr = addr
	}
	if f.Changed("log-level") {
		config.Log.Level, _ = f.GetString("log-level")
	}

	return config, nil
}
