package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nowplaying/internal/ingest"
	"nowplaying/internal/platform/config"
	"nowplaying/internal/platform/metrics"
	"nowplaying/internal/playlist"
	"nowplaying/internal/stream"
	"nowplaying/internal/tags"
)

var (
	pollInterval    time.Duration
	pollMetricsAddr string
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Record the track currently on air",
	Long: `Runs one ingestion cycle and exits, for use from cron or a scheduler.
With --interval, cycles repeat until the process is interrupted.`,
	RunE: runPoll,
}

func init() {
	pollCmd.Flags().DurationVar(&pollInterval, "interval", 0, "Repeat cycles at this interval instead of running once")
	pollCmd.Flags().StringVar(&pollMetricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address while looping (e.g. :9090)")
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	cfg := config.LoadPoller()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := playlist.OpenRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := stream.NewClient(cfg.StreamBaseURL, stream.Options{
		ManifestName:    cfg.ManifestName,
		UserAgent:       cfg.UserAgent,
		ManifestTimeout: cfg.ManifestTimeout,
		SegmentTimeout:  cfg.SegmentTimeout,
	})
	if err != nil {
		return err
	}

	met := metrics.New()
	selector := ingest.NewSelector(client, tags.NewExtractor(log), cfg.Candidates, log, met)
	writer := ingest.NewWriter(store, cfg.TableName, log)
	poller := ingest.NewPoller(selector, writer, log, met)

	if pollInterval <= 0 {
		return poller.RunOnce(ctx)
	}

	if pollMetricsAddr != "" {
		srv := &http.Server{Addr: pollMetricsAddr, Handler: met.Handler(nil), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", slog.String("error", err.Error()))
			}
		}()
		defer srv.Close()
	}

	log.Info("poller starting",
		slog.String("stream", cfg.StreamBaseURL),
		slog.String("table", cfg.TableName),
		slog.Duration("interval", pollInterval))

	if err := poller.Run(ctx, pollInterval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("poller stopped")
	return nil
}
