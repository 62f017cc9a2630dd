package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codenarok/SteamGameFetcher/scraper"
)

var (
	listedInput  string
	listedOutput string
)

func init() {
	listedCmd.Flags().StringVar(&listedInput, "input", "", "CSV file whose first column holds the game titles to look up")
	listedCmd.Flags().StringVar(&listedOutput, "output", "", "Output CSV path (defaults to search_results_<input name>)")
	listedCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(listedCmd)
}

var listedCmd = &cobra.Command{
	Use:   "listed",
	Short: "Looks up the compatibility status for each title in a CSV and writes the results alongside the input columns.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		output := listedOutput
		if output == "" {
			dir, base := filepath.Split(listedInput)
			output = filepath.Join(dir, "search_results_"+base)
		}

		session, err := scraper.Attach(cmd.Context(), cfg.Scraper)
		if err != nil {
			return err
		}
		defer session.Close()

		summary, err := scraper.NewListedScraper(session).Run(cmd.Context(), listedInput, output)
		if summary != nil {
			slog.Info("listed scrape finished",
				slog.Int("processed", summary.Processed),
				slog.Int("matched", summary.Matched),
				slog.Int("not_found", summary.NotFound),
				slog.Int("skipped", summary.Skipped),
			)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Results written to %s\n", output)
		return nil
	},
}
