package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"pollex.nl/bookshelf"
	"pollex.nl/bookshelf/sqlmodel"
)

// collection serves one record type from the table behind schema.
type collection[T bookshelf.Record[T], R any] struct {
	schema *sqlmodel.ModelSchema[R]
	runner sqlmodel.Runner
	logger *zap.Logger

	fromRow func(R) T
	toRow   func(T) R
}

func (c *collection[T, R]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T

	row, err := c.schema.Query().
		Where(bookshelf.AttrID, id).
		CollectOne(ctx, c.runner)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, bookshelf.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("%s: find %s: %w", c.schema.Table, id, err)
	}

	return c.fromRow(*row), nil
}

func (c *collection[T, R]) FindAll(ctx context.Context) ([]T, error) {
	return c.collect(ctx, c.schema.Query())
}

func (c *collection[T, R]) FindWhere(ctx context.Context, conds ...bookshelf.Cond) ([]T, error) {
	query := c.schema.Query()
	for _, cond := range conds {
		if _, ok := c.schema.Column(cond.Attr); !ok {
			return nil, fmt.Errorf("%w: %s", bookshelf.ErrUnknownAttribute, cond.Attr)
		}
		query = query.Where(cond.Attr, cond.Value)
	}

	return c.collect(ctx, query)
}

func (c *collection[T, R]) Insert(ctx context.Context, record T) (T, error) {
	if record.Key() == "" {
		record = record.WithKey(uuid.NewString())
	}

	// Concurrent inserts can both pass this check; the primary key then rejects the loser.
	switch _, err := c.FindByID(ctx, record.Key()); {
	case err == nil:
		var zero T
		return zero, fmt.Errorf("%w: %s", bookshelf.ErrDuplicateID, record.Key())
	case !errors.Is(err, bookshelf.ErrNotFound):
		var zero T
		return zero, err
	}

	row := c.toRow(record)
	if err := c.schema.Insert(ctx, c.runner, &row); err != nil {
		var zero T
		if isDuplicateKey(err) {
			return zero, fmt.Errorf("%w: %s", bookshelf.ErrDuplicateID, record.Key())
		}
		return zero, fmt.Errorf("%s: insert %s: %w", c.schema.Table, record.Key(), err)
	}

	c.logger.Debug("inserted record", zap.String("table", c.schema.Table), zap.String("id", record.Key()))
	return record, nil
}

func (c *collection[T, R]) collect(ctx context.Context, query sqlmodel.ModelQuery[R]) ([]T, error) {
	rows, err := query.Collect(ctx, c.runner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.schema.Table, err)
	}

	return lo.Map(rows, func(r R, _ int) T { return c.fromRow(r) }), nil
}

// isDuplicateKey recognises each driver's unique constraint violation.
func isDuplicateKey(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}

	return false
}
