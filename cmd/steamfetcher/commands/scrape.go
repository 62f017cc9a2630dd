package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/codenarok/SteamGameFetcher/checkpoint"
	"github.com/codenarok/SteamGameFetcher/models"
	"github.com/codenarok/SteamGameFetcher/scraper"
)

var metricsAddr string

func init() {
	scrapeCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrapes the full compatibility listing into the checkpoint CSV, resuming where the last run stopped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		store, err := checkpoint.Open(cfg.Scraper.CheckpointFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				slog.Error("close checkpoint", slog.Any("error", err))
			}
		}()

		session, err := scraper.Attach(ctx, cfg.Scraper)
		if err != nil {
			return err
		}
		defer session.Close()

		s, err := scraper.New(cfg.Scraper, session, store)
		if err != nil {
			return err
		}

		var metricsServer *http.Server
		if metricsAddr != "" {
			metricsServer = &http.Server{
				Addr:    metricsAddr,
				Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
			}
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("metrics server failed", slog.Any("error", err))
				}
			}()
			slog.Info("metrics server enabled", slog.String("addr", metricsAddr))
		}

		summary, err := s.Run(ctx)
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", shutdownErr))
			}
			cancel()
		}
		if summary != nil {
			printScrapeSummary(summary, cfg.Scraper.CheckpointFile)
		}
		return err
	},
}

func printScrapeSummary(summary *models.ScrapeSummary, checkpointFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("Resumed from row:  %d\n", summary.ResumedFrom)
	fmt.Printf("Rows written:      %d\n", summary.RowsWritten)
	fmt.Printf("Last row number:   %d\n", summary.LastRowNumber)
	fmt.Printf("Scroll attempts:   %d\n", summary.ScrollAttempts)
	fmt.Printf("Stalled passes:    %d\n", summary.Stalls)
	fmt.Printf("Listing exhausted: %v\n", summary.Exhausted)
	fmt.Printf("Duration:          %s\n", summary.EndTime.Sub(summary.StartTime).Round(time.Second))
	fmt.Printf("Checkpoint file:   %s\n", checkpointFile)
	fmt.Println(separator)
}
