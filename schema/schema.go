// Package schema declares the library's GraphQL type graph and binds it to resolvers over a
// bookshelf.Store.
package schema

import (
	"context"
	"fmt"

	"github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"

	"pollex.nl/bookshelf"
)

// New renders the library graph and parses it against a resolver for store. The logger
// also receives panics raised while resolving fields.
func New(store bookshelf.Store, logger *zap.Logger, opts ...graphql.SchemaOpt) (*graphql.Schema, error) {
	sdl, err := Library().SDL()
	if err != nil {
		return nil, fmt.Errorf("render schema: %w", err)
	}

	opts = append([]graphql.SchemaOpt{graphql.Logger(panicLogger{logger})}, opts...)
	s, err := graphql.ParseSchema(sdl, NewResolver(store, logger), opts...)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return s, nil
}

type panicLogger struct {
	logger *zap.Logger
}

func (l panicLogger) LogPanic(_ context.Context, value interface{}) {
	l.logger.Error("graphql: panic occurred", zap.Any("panic", value), zap.Stack("stack"))
}
