package main

import (
	"fmt"
	"log/slog"
	"os"
	"parcel-dispatch-service/internal/adapters/repositories"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var (
		seedPath   string
		withSchema bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upserts agents and parcels from a JSON seed file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(seedPath)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			seed, err := repositories.ParseSeed(f)
			if err != nil {
				return err
			}

			conn, err := openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx := cmd.Context()
			if withSchema {
				if err := repositories.InitSchema(ctx, conn); err != nil {
					return err
				}
			}

			progress := func() {}
			if isatty.IsTerminal(os.Stderr.Fd()) {
				bar := progressbar.NewOptions(seed.Rows(),
					progressbar.OptionSetDescription("Seeding "+seedPath),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
				defer bar.Finish()
				progress = func() { _ = bar.Add(1) }
			}

			if err := repositories.SeedFromJSON(ctx, conn, seed, progress); err != nil {
				return err
			}

			slog.Info("seeding complete", "agents", len(seed.Agents), "parcels", len(seed.Parcels))
			return nil
		},
	}

	cmd.Flags().StringVar(&seedPath, "file", "data/seed.json", "seed JSON file")
	cmd.Flags().BoolVar(&withSchema, "init-schema", true, "create missing tables before seeding")

	return cmd
}

func init() {
	rootCmd.AddCommand(newSeedCmd())
}
