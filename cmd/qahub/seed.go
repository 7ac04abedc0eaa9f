package main

import (
	"fmt"

	"github.com/ethpandaops/qahub/pkg/api/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create tables and insert sample rows into empty tables",
	Long: `Create any missing tables and insert the sample dataset into every table
that is still empty. Tables that already hold rows are left untouched.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	st := store.NewStore(log, &cfg.Database)
	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()

	if err := st.Seed(ctx, store.DefaultSeedData()); err != nil {
		return fmt.Errorf("seeding store: %w", err)
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		return fmt.Errorf("counting rows: %w", err)
	}

	log.WithFields(logrus.Fields{
		"tests":              counts.Tests,
		"bugs":               counts.Bugs,
		"test_cases":         counts.TestCases,
		"automation_reports": counts.Reports,
	}).Info("Seeding complete")

	return nil
}
