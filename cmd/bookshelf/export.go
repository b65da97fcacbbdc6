package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"pollex.nl/bookshelf"
	"pollex.nl/bookshelf/internal/config"
)

var export = newSubCommand(&cobra.Command{
	Use:   "export",
	Short: "Write the library grouped by author as JSON",
	Args:  cobra.NoArgs,
}, storeFlags, func(cmd *cobra.Command) {
	cmd.Flags().StringP("out", "o", "", "File to write to. Defaults to stdout.")
})

func init() {
	export.Cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(export.Conf)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.LogLevel, cfg.Dev)
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		catalog, err := bookshelf.BuildCatalog(cmd.Context(), store)
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if path := export.Conf.GetString("out"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog)
	}
}
