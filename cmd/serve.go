package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agrodesk/agrodesk/internal/channels"
	"github.com/agrodesk/agrodesk/internal/db"
	"github.com/agrodesk/agrodesk/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agrodesk HTTP server",
	Long: `Starts the help-desk server: the chat API, the work-order API, and the
inbound channel webhooks (Slack and generic).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		database, err := db.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		orch, orders, err := buildOrchestrator(cmd.Context(), cfg, database, logger)
		if err != nil {
			return err
		}

		gateway := channels.NewGateway(channels.NewProcessor(orch))
		slack := channels.NewSlackHandler(gateway, cfg.Channels.SlackSigningSecret)
		webhook := channels.NewWebhookHandler(gateway, cfg.Channels.WebhookToken)

		srv := server.New(server.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
		}, orch, orders, slack, webhook, logger)

		// Graceful shutdown on SIGINT/SIGTERM.
		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-stop:
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
