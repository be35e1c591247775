package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sevaro/leadline/internal/db"
	"github.com/sevaro/leadline/internal/logging"
	"github.com/sevaro/leadline/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local lead store server",
	Long: `Serve runs a local lead store backed by SQLite, exposing the due-poll
and mutation endpoints the watch command consumes. Useful for demos and
development without a CRM backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "host:port to bind (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	logger := logging.Component("serve")

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create data directories: %w", err)
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	listen := cfg.Server.Listen
	if serveListen != "" {
		listen = serveListen
	}

	srv := server.New(server.Config{
		Listen:           listen,
		MeetingDueWindow: cfg.Server.MeetingDueWindow,
	}, database)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("database", cfg.DatabasePath()).Msg("lead store ready")
	return srv.Start(ctx)
}
