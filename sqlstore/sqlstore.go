// Package sqlstore keeps the library in two SQL tables, authors and books.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"pollex.nl/bookshelf"
	"pollex.nl/bookshelf/sqlmodel"
)

// Dialect names a database/sql driver and the placeholders it expects.
type Dialect struct {
	Driver      string
	Placeholder squirrel.PlaceholderFormat
}

var (
	SQLite   = Dialect{Driver: "sqlite3", Placeholder: squirrel.Question}
	Postgres = Dialect{Driver: "postgres", Placeholder: squirrel.Dollar}
	MySQL    = Dialect{Driver: "mysql", Placeholder: squirrel.Question}
)

var migrations = []string{
	`create table if not exists authors (
		id varchar(64) not null primary key,
		name varchar(255) not null,
		age integer not null
	)`,
	`create table if not exists books (
		id varchar(64) not null primary key,
		name varchar(255) not null,
		genre varchar(255) not null,
		author_id varchar(64) not null
	)`,
}

type Store struct {
	db      *sql.DB
	runner  sqlmodel.Runner
	schemas schemas

	books   *collection[bookshelf.Book, bookRow]
	authors *collection[bookshelf.Author, authorRow]
}

var (
	_ bookshelf.Store     = (*Store)(nil)
	_ bookshelf.Cataloger = (*Store)(nil)
)

// Open connects with dsn and creates the tables when they are missing.
func Open(ctx context.Context, dialect Dialect, dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Driver, err)
	}
	if dialect == SQLite && strings.Contains(dsn, ":memory:") {
		// Every new connection would open a fresh, empty in-memory database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Driver, err)
	}

	store, err := New(ctx, db, dialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New uses an already opened db.
func New(ctx context.Context, db *sql.DB, dialect Dialect, logger *zap.Logger) (*Store, error) {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	runner := sqlmodel.Runner{DB: db, Placeholder: dialect.Placeholder}
	s := newSchemas()

	return &Store{
		db:      db,
		runner:  runner,
		schemas: s,
		books: &collection[bookshelf.Book, bookRow]{
			schema:  s.book,
			runner:  runner,
			logger:  logger,
			fromRow: bookFromRow,
			toRow:   bookToRow,
		},
		authors: &collection[bookshelf.Author, authorRow]{
			schema:  s.author,
			runner:  runner,
			logger:  logger,
			fromRow: authorFromRow,
			toRow:   authorToRow,
		},
	}, nil
}

func (s *Store) Books() bookshelf.Repository[bookshelf.Book]     { return s.books }
func (s *Store) Authors() bookshelf.Repository[bookshelf.Author] { return s.authors }

func (s *Store) Close() error {
	return s.db.Close()
}

// Catalog loads authors with their books and books with their author in two batched
// relation queries each.
func (s *Store) Catalog(ctx context.Context) (bookshelf.Catalog, error) {
	authors, err := s.schemas.author.Query("*", "books").Collect(ctx, s.runner)
	if err != nil {
		return bookshelf.Catalog{}, fmt.Errorf("catalog authors: %w", err)
	}
	books, err := s.schemas.book.Query("*", "author").Collect(ctx, s.runner)
	if err != nil {
		return bookshelf.Catalog{}, fmt.Errorf("catalog books: %w", err)
	}

	return bookshelf.Catalog{
		Shelves: lo.Map(authors, func(a authorRow, _ int) bookshelf.Shelf {
			return bookshelf.Shelf{Author: a.Author, Books: lo.Map(a.Books, func(b bookRow, _ int) bookshelf.Book { return b.Book })}
		}),
		Orphans: lo.FilterMap(books, func(b bookRow, _ int) (bookshelf.Book, bool) {
			return b.Book, b.Author == nil
		}),
	}, nil
}
