package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rigdev/pulse/internal/adapter/notify"
	"github.com/rigdev/pulse/internal/config"
	"github.com/rigdev/pulse/internal/dashboard"
	"github.com/rigdev/pulse/internal/ingest"
	"github.com/rigdev/pulse/internal/web"
	"github.com/rigdev/pulse/internal/webhook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API and the webhook server together",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		port := e.cfg.Server.Port
		if p, _ := cmd.Flags().GetInt("port"); p > 0 {
			port = p
		}
		webhookPort := e.cfg.Server.WebhookPort
		if p, _ := cmd.Flags().GetInt("webhook-port"); p > 0 {
			webhookPort = p
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc := dashboard.New(e.cfg, e.db, e.log, nil)
		source, err := newSource(e.cfg)
		if err != nil {
			return err
		}
		ing := ingest.New(e.db, source, svc.Config, e.log)

		errCh := make(chan error, 3)

		// --- Dashboard API ---
		webSrv := &http.Server{
			Addr:        fmt.Sprintf(":%d", port),
			Handler:     web.NewHandler(svc, e.log),
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
			// No WriteTimeout: event streams stay open.
		}
		go func() {
			e.log.WithField("port", port).Info("dashboard API listening")
			if err := webSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("web server: %w", err)
			}
		}()

		// --- Webhook Server ---
		whServer := webhook.NewServer(webhookPort, webhook.NewHandler(svc.Config, ing, e.log), e.log)
		go func() {
			if err := whServer.ListenAndServe(ctx); err != nil {
				errCh <- fmt.Errorf("webhook server: %w", err)
			}
		}()

		// --- Score band notifications ---
		go notify.Run(ctx, svc, e.db, e.log, notify.DefaultCheckInterval)

		// --- Config hot reload ---
		configPath := viper.GetString("config")
		go func() {
			err := config.Watch(ctx, configPath, e.log, applyReload(svc, ing, e.log))
			if err != nil {
				e.log.WithError(err).Warn("config watch stopped")
			}
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "\n  pulse serve running\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  ├─ API     : http://localhost:%d/api\n", port)
		fmt.Fprintf(cmd.OutOrStdout(), "  └─ Webhook : http://localhost:%d/webhook\n\n", webhookPort)

		select {
		case <-ctx.Done():
			e.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = webSrv.Shutdown(shutdownCtx)
			return nil
		case err := <-errCh:
			return err
		}
	},
}

// applyReload returns the config watcher callback of serve. The GitHub
// client is rebuilt only when its credentials or endpoint change.
func applyReload(svc *dashboard.Service, ing *ingest.Ingester, log logrus.FieldLogger) func(*config.Config) {
	github := svc.Config().GitHub
	return func(cfg *config.Config) {
		if cfg.GitHub.Token != github.Token || cfg.GitHub.BaseURL != github.BaseURL {
			src, err := newSource(cfg)
			if err != nil {
				log.WithError(err).Error("github settings invalid, keeping previous config")
				return
			}
			ing.SetSource(src)
			github = cfg.GitHub
			log.Info("github client rebuilt")
		}
		svc.Reload(cfg)
		log.WithField("teams", len(cfg.Teams)).Info("configuration reloaded")
	}
}
