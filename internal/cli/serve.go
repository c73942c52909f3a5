package cli

import (
	"context"
	"log"
	"time"

	"github.com/gsclens/gsclens/internal/alerts"
	"github.com/gsclens/gsclens/internal/api"
	"github.com/gsclens/gsclens/internal/config"
	"github.com/gsclens/gsclens/internal/gsc"
	"github.com/gsclens/gsclens/internal/logging"
	"github.com/gsclens/gsclens/internal/metrics"
	"github.com/gsclens/gsclens/internal/telegram"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s", "server", "run"},
	Short:   "Start the GSCLens server",
	Long: `Start the GSCLens server in main mode.

This command starts the HTTP server that exposes search-analytics reports,
sitemap management and URL inspection for the configured property.

Example:
  gsclens serve --config config.yaml

The server will start listening on the address configured in the config file.`,
	RunE: runServe,
}

var serveFlags struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Server host (overrides config)")
	serveCmd.Flags().IntVar(&serveFlags.Port, "port", 0, "Server port (overrides config)")
	serveCmd.Flags().DurationVar(&serveFlags.Timeout, "timeout", 30*time.Second, "Shutdown timeout")

	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if globalFlags.Verbose {
		log.Println("Starting GSCLens server...")
		log.Printf("Config path: %s", globalFlags.Config)
	}

	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	// Apply CLI flags to config
	if serveFlags.Host != "" {
		cfg.Server.Host = serveFlags.Host
	}
	if serveFlags.Port != 0 {
		cfg.Server.HTTPPort = serveFlags.Port
	}
	if serveFlags.Timeout > 0 {
		cfg.Server.ShutdownTimeout = serveFlags.Timeout
	}

	logger := logging.NewLogger(logging.WithLevel(logging.LogLevel(cfg.Server.LogLevel)))

	client, tokens, cache, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}

	m := metrics.NewMetrics("gsclens")
	client.SetRequestObserver(func(endpoint string, status int) {
		m.RecordGSCRequest(endpoint, gsc.StatusClass(status))
	})
	client.SetCacheObserver(m.RecordCacheLookup)

	server := api.NewServer(cfg.Server, cfg.API, cfg.Property, client, tokens, cache, m, logger)

	var alertSvc *alerts.Service
	if cfg.Alerts.Enabled && cache != nil {
		notifier := telegram.NewBotNotifier(cfg.Alerts.Telegram.BotToken, cfg.Alerts.Telegram.ChatID)
		alertSvc = alerts.NewService(cfg.Alerts, client, cache, notifier, logger,
			alerts.WithSentCallback(m.RecordAlertSent))
		alertSvc.Start(context.Background())
		logger.Info("traffic alerts enabled",
			"check_interval", cfg.Alerts.CheckInterval.String(),
			"drop_threshold_pct", cfg.Alerts.DropThresholdPct)
	}

	// Reload property and alert settings when the config file changes. The
	// listen address, auth keys and the client's site URL need a restart.
	loader.SetOnChange(func(updated *config.Config) {
		server.ApplyConfig(updated.Property)
		if alertSvc != nil {
			alertSvc.UpdateConfig(updated.Alerts)
		}
		logger.Info("configuration reloaded", "path", globalFlags.Config)
	})
	watcher, err := config.NewWatcher(loader, logger)
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err.Error())
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	// Evict expired report rows so an idle cache does not grow between writes.
	if cache != nil {
		stopPurge := make(chan struct{})
		defer close(stopPurge)
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-stopPurge:
					return
				case <-ticker.C:
					if err := cache.Purge(); err != nil {
						logger.Warn("cache purge failed", "error", err.Error())
					}
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	sigCh := api.SetupSignalHandler()
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	}

	if alertSvc != nil {
		alertSvc.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}
