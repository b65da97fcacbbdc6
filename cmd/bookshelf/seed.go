package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pollex.nl/bookshelf/internal/config"
)

var seed = newSubCommand(&cobra.Command{
	Use:   "seed",
	Short: "Insert the sample library into a store",
	Args:  cobra.NoArgs,
}, storeFlags)

func init() {
	seed.Cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(seed.Conf)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.LogLevel, cfg.Dev)
		if err != nil {
			return err
		}
		defer logger.Sync()

		// openStore seeds as it opens.
		cfg.Seed = true
		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		authors, err := store.Authors().FindAll(cmd.Context())
		if err != nil {
			return err
		}
		books, err := store.Books().FindAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s now holds %d authors and %d books\n", cfg.Store, len(authors), len(books))
		return nil
	}
}
