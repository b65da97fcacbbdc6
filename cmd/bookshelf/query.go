package main

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"pollex.nl/bookshelf/client"
	"pollex.nl/bookshelf/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var query = newSubCommand(&cobra.Command{
	Use:   "query [file]",
	Short: "Run one named query and print the normalized records",
	Long: `
Reads a query from file, or from stdin when no file is given, sends it to the
endpoint with the bearer token and prints the records it normalized into.`,
	Args: cobra.MaximumNArgs(1),
}, clientFlags, func(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "Operation name to send with the query.")
	cmd.Flags().String("variables", "{}", "Query variables as a JSON object.")
})

func init() {
	query.Cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadClient(query.Conf)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.LogLevel, cfg.Dev)
		if err != nil {
			return err
		}
		defer logger.Sync()

		in := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		text, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read query: %w", err)
		}

		var variables map[string]interface{}
		if err := json.UnmarshalFromString(query.Conf.GetString("variables"), &variables); err != nil {
			return fmt.Errorf("variables: %w", err)
		}

		loader := client.NewLoader(cfg.Endpoint, cfg.AuthToken, logger)
		_, loadErr := loader.Load(cmd.Context(), query.Conf.GetString("name"), string(text), variables)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(loader.Store().Snapshot()); err != nil {
			return err
		}
		return loadErr
	}
}
