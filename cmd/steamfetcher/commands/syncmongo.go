package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codenarok/SteamGameFetcher/mongostore"
	"github.com/codenarok/SteamGameFetcher/scraper"
)

func init() {
	rootCmd.AddCommand(syncMongoCmd)
}

var syncMongoCmd = &cobra.Command{
	Use:   "sync-mongo",
	Short: "Pulls titles from SQL Server, scrapes their compatibility status, and upserts the results into MongoDB.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		db, err := openSQLServer(cfg.SQLServer)
		if err != nil {
			return err
		}
		defer db.Close()

		store, err := mongostore.Connect(ctx, cfg.MongoDB)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(ctx); err != nil {
				slog.Error("close mongo client", slog.Any("error", err))
			}
		}()

		session, err := scraper.Attach(ctx, cfg.Scraper)
		if err != nil {
			return err
		}
		defer session.Close()

		syncer := mongostore.NewSyncer(db, session, store, cfg.SQLServer.Query)
		summary, err := syncer.Run(ctx)
		if summary != nil {
			slog.Info("sync summary",
				slog.Int("titles", summary.Titles),
				slog.Int("inserted", summary.Inserted),
				slog.Int("not_found", summary.NotFound),
				slog.Int("skipped", summary.Skipped),
			)
		}
		return err
	},
}
