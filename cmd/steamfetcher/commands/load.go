package commands

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/microsoft/go-mssqldb/azuread"
	"github.com/spf13/cobra"

	"github.com/codenarok/SteamGameFetcher/config"
	"github.com/codenarok/SteamGameFetcher/loader"
)

var loadInput string

func init() {
	loadCmd.Flags().StringVar(&loadInput, "input", "", "CSV file to load (defaults to the checkpoint file)")
	rootCmd.AddCommand(loadCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Validates a scraped CSV against the SQL Server table and inserts it in batches.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		input := loadInput
		if input == "" {
			input = cfg.Scraper.CheckpointFile
		}

		db, err := openSQLServer(cfg.SQLServer)
		if err != nil {
			return err
		}
		defer db.Close()

		l := loader.New(db, cfg.SQLServer.Table, cfg.Loader.BatchSize, loader.ParamStyleSQLServer, nil)
		inserted, err := l.LoadFile(cmd.Context(), input)
		if err != nil {
			return err
		}

		slog.Info("load complete",
			slog.String("input", input),
			slog.String("table", cfg.SQLServer.Table),
			slog.Int("rows_inserted", inserted),
		)
		return nil
	},
}

// openSQLServer connects with the operator's Azure AD identity; the
// interactive flow opens a browser prompt on first use.
func openSQLServer(cfg config.SQLServer) (*sql.DB, error) {
	dsn := fmt.Sprintf("server=%s;database=%s;fedauth=ActiveDirectoryInteractive;encrypt=true",
		cfg.Server, cfg.Database)
	db, err := sql.Open(azuread.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open SQL Server connection: %w", err)
	}
	return db, nil
}
