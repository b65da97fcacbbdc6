package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pollex.nl/bookshelf"
	"pollex.nl/bookshelf/badgerstore"
	"pollex.nl/bookshelf/dynamostore"
	"pollex.nl/bookshelf/internal/config"
	"pollex.nl/bookshelf/memstore"
	"pollex.nl/bookshelf/sqlstore"
)

var RootCmd = &cobra.Command{
	Use:   "bookshelf",
	Short: "GraphQL server over a library of books and authors",
	Long: `
bookshelf serves a small library of books and their authors over GraphQL.
Records live in memory, in a SQL database, in an embedded badger store or
in a DynamoDB table.`,
	SilenceUsage: true,
}

// subCommand pairs a command with the viper instance its flags are bound to.
type subCommand struct {
	Cmd  *cobra.Command
	Conf *viper.Viper
}

func newSubCommand(cmd *cobra.Command, register ...func(*cobra.Command)) *subCommand {
	sc := &subCommand{Cmd: cmd, Conf: viper.New()}
	for _, r := range register {
		r(cmd)
	}
	config.RegisterLogFlags(cmd.Flags())

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return config.Bind(sc.Conf, cmd.Flags())
	}
	RootCmd.AddCommand(cmd)
	return sc
}

func storeFlags(cmd *cobra.Command)  { config.RegisterStoreFlags(cmd.Flags()) }
func serverFlags(cmd *cobra.Command) { config.RegisterServerFlags(cmd.Flags()) }
func clientFlags(cmd *cobra.Command) { config.RegisterClientFlags(cmd.Flags()) }

// newLogger builds the process logger and makes it the global one.
func newLogger(level string, dev bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// openStore opens the backend cfg names and seeds it when asked to.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (bookshelf.Store, error) {
	var (
		store bookshelf.Store
		err   error
	)

	switch cfg.Store {
	case "memory":
		store = memstore.New()

	case "sqlite", "postgres", "mysql":
		dialect := map[string]sqlstore.Dialect{
			"sqlite":   sqlstore.SQLite,
			"postgres": sqlstore.Postgres,
			"mysql":    sqlstore.MySQL,
		}[cfg.Store]

		var dsn string
		if dsn, err = cfg.DSN(); err != nil {
			return nil, err
		}
		store, err = sqlstore.Open(ctx, dialect, dsn, logger)

	case "badger":
		store, err = badgerstore.Open(cfg.BadgerDir, logger)

	case "dynamodb":
		store, err = dynamostore.Open(ctx, dynamostore.Options{
			Table:           cfg.DynamoTable,
			Region:          cfg.DynamoRegion,
			Endpoint:        cfg.DynamoEndpoint,
			AccessKeyID:     cfg.UserID,
			SecretAccessKey: cfg.UserPwd,
		}, logger)

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("opened store", zap.String("store", cfg.Store))

	if cfg.Seed {
		if err := bookshelf.Seed(ctx, store); err != nil {
			store.Close()
			return nil, err
		}
		logger.Info("seeded sample library",
			zap.Int("authors", len(bookshelf.SampleAuthors)),
			zap.Int("books", len(bookshelf.SampleBooks)))
	}
	return store, nil
}
