package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/graph-gophers/graphql-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pollex.nl/bookshelf/internal/config"
	"pollex.nl/bookshelf/schema"
	"pollex.nl/bookshelf/server"
)

var serve = newSubCommand(&cobra.Command{
	Use:   "serve",
	Short: "Serve the library over GraphQL",
	Args:  cobra.NoArgs,
}, storeFlags, serverFlags)

func init() {
	serve.Cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(serve.Conf)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger, err := newLogger(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := []graphql.SchemaOpt{}
	if cfg.MaxDepth > 0 {
		opts = append(opts, graphql.MaxDepth(cfg.MaxDepth))
	}
	if cfg.MaxParallelism > 0 {
		opts = append(opts, graphql.MaxParallelism(cfg.MaxParallelism))
	}
	s, err := schema.New(store, logger, opts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: server.New(s, logger, server.Options{
			GraphiQL:    cfg.GraphiQL,
			CORSOrigins: cfg.CORSOrigins,
		}).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("listening for requests on port %d", cfg.Port),
			zap.String("store", cfg.Store),
			zap.Bool("graphiql", cfg.GraphiQL),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
