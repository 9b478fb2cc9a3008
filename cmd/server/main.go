package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/timetable-server/internal/app"
	"github.com/vovakirdan/timetable-server/internal/config"
	"github.com/vovakirdan/timetable-server/internal/log"
	"github.com/vovakirdan/timetable-server/internal/store/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "timetable-server",
		Short:         "Shared weekly timetables with real-time updates",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")

	root.AddCommand(newServeCmd(&configPath), newMigrateCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLogger := log.New("info")
			cfg, path, err := config.Load(bootLogger, *configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := log.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)
			logger.Info().Str("config", path).Msg("configuration loaded")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, &cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("failed to initialize application")
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Msg("starting timetable server")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	flags.DurationVar(&overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	flags.DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.LogFormat, "log-format", "", "log format (console, json)")
	flags.StringVar(&overrides.DatabasePath, "db", "", "SQLite database path")
	flags.StringVar(&overrides.BroadcastScope, "broadcast-scope", "", "broadcast scope (global, timetable)")
	flags.IntVar(&overrides.SendBuffer, "send-buffer", 0, "per-connection outbound queue size")
	flags.IntVar(&overrides.RateLimitPerMinute, "rate-limit", 0, "inbound frames per connection per minute (0 disables)")
	return cmd
}

func newMigrateCmd(configPath *string) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New("info")
			cfg, _, err := config.Load(logger, *configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(config.Config{DatabasePath: dbPath})

			ctx := cmd.Context()
			st, err := sqlite.New(ctx, cfg.DatabasePath)
			if err != nil {
				logger.Error().Err(err).Str("db_path", cfg.DatabasePath).Msg("migration failed")
				return err
			}
			defer st.Close()

			version, err := st.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			logger.Info().Str("db_path", cfg.DatabasePath).Int64("schema_version", version).Msg("database migrated")
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")
	return cmd
}
