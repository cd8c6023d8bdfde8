package main

import (
	"log/slog"
	"parcel-dispatch-service/internal/adapters/repositories"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Creates the agents, parcels and geocode_cache tables if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			slog.Info("initializing database schema")
			if err := repositories.InitSchema(cmd.Context(), conn); err != nil {
				return err
			}
			slog.Info("schema ready")
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newSchemaCmd())
}
