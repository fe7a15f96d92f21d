// Package serve implements the dashboard server subcommand.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/asmavensocial/installation-dashbaord/internal/conf"
	"github.com/asmavensocial/installation-dashbaord/internal/drivelink"
	"github.com/asmavensocial/installation-dashbaord/internal/httpcontroller"
	"github.com/asmavensocial/installation-dashbaord/internal/imageresolver"
	"github.com/asmavensocial/installation-dashbaord/internal/logging"
	"github.com/asmavensocial/installation-dashbaord/internal/observability"
	"github.com/asmavensocial/installation-dashbaord/internal/survey"
)

// Command creates the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the installation dashboard",
		Long:  "Load the survey workbook and serve the dashboard API with image preloading.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	flags := cmd.Flags()
	flags.StringVar(&settings.Dashboard.Host, "host", viper.GetString("dashboard.host"), "Address to listen on")
	flags.IntVar(&settings.Dashboard.Port, "port", viper.GetInt("dashboard.port"), "Port to listen on")
	flags.IntVar(&settings.Dashboard.Thumbnails.Width, "width", viper.GetInt("dashboard.thumbnails.width"), "Requested thumbnail width in pixels")
	flags.IntVar(&settings.Dashboard.Preload.WindowSize, "window", viper.GetInt("dashboard.preload.windowsize"), "Records preloaded per navigation window")
	flags.IntVar(&settings.Dashboard.Preload.Concurrency, "concurrency", viper.GetInt("dashboard.preload.concurrency"), "Parallel image fetches per window")

	// Bind to the full nested config keys, not the bare flag names.
	bindings := map[string]string{
		"host":        "dashboard.host",
		"port":        "dashboard.port",
		"width":       "dashboard.thumbnails.width",
		"window":      "dashboard.preload.windowsize",
		"concurrency": "dashboard.preload.concurrency",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding %s flag: %w", flag, err)
		}
	}

	return nil
}

func runServer(settings *conf.Settings) error {
	logger := logging.Structured().With("service", "serve")

	if settings.Log.File != "" {
		level := slog.LevelInfo
		if settings.Debug {
			level = slog.LevelDebug
		}
		fileLogger, closeLog, err := logging.NewFileLogger(settings.Log.File, "serve", level)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer func() { _ = closeLog() }()
		logger = fileLogger
	}

	records, err := survey.Load(settings.Source.Spreadsheet, settings.Source.Sheet)
	if err != nil {
		return fmt.Errorf("loading survey records: %w", err)
	}
	logger.Info("Survey records loaded",
		"path", settings.Source.Spreadsheet,
		"records", len(records))

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	debug := settings.Debug || settings.Dashboard.Thumbnails.Debug
	fetcher := imageresolver.NewHTTPFetcher(&settings.Fetch, debug)
	defer fetcher.Close()

	cache := imageresolver.NewCache(fetcher, metrics.ImageResolver, debug)
	normalizer := drivelink.New(settings.Dashboard.Thumbnails.Width)
	preloader := imageresolver.NewPreloader(cache, normalizer,
		settings.Dashboard.Preload.WindowSize,
		settings.Dashboard.Preload.Concurrency)

	server := httpcontroller.New(settings, records, cache, preloader, normalizer, metrics)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
