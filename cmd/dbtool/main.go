package main

import (
	"database/sql"
	"fmt"
	"os"
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/platform/db"
	"parcel-dispatch-service/internal/platform/logging"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "dbtool",
	Short: "manage the parcel dispatch database",
	Long: `
dbtool creates the Postgres schema used by the dispatch service and loads
agents and parcels from a JSON seed file for local runs.
`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file (default: ./config.yaml if present)")
}

// openDB loads configuration and connects to the configured Postgres database.
func openDB() (*sql.DB, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	conn, err := db.Open(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return conn, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
