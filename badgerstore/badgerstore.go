// Package badgerstore keeps every record as a JSON document in an embedded badger database.
// Keys are "<collection>/<id>".
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"pollex.nl/bookshelf"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Store struct {
	db *badger.DB

	books   *collection[bookshelf.Book]
	authors *collection[bookshelf.Author]
}

var _ bookshelf.Store = (*Store)(nil)

// Open keeps the database in dir; an empty dir keeps it in memory only.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger.Sugar()})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &Store{
		db:      db,
		books:   &collection[bookshelf.Book]{db: db, prefix: []byte("books/"), logger: logger},
		authors: &collection[bookshelf.Author]{db: db, prefix: []byte("authors/"), logger: logger},
	}, nil
}

func (s *Store) Books() bookshelf.Repository[bookshelf.Book]     { return s.books }
func (s *Store) Authors() bookshelf.Repository[bookshelf.Author] { return s.authors }

func (s *Store) Close() error {
	return s.db.Close()
}

type collection[T bookshelf.Record[T]] struct {
	db     *badger.DB
	prefix []byte
	logger *zap.Logger
}

func (c *collection[T]) key(id string) []byte {
	return append(append([]byte{}, c.prefix...), id...)
}

func (c *collection[T]) FindByID(_ context.Context, id string) (T, error) {
	var record T
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return record, bookshelf.ErrNotFound
	}
	if err != nil {
		return record, fmt.Errorf("%s: find %s: %w", c.prefix, id, err)
	}
	return record, nil
}

func (c *collection[T]) FindAll(ctx context.Context) ([]T, error) {
	return c.FindWhere(ctx)
}

// FindWhere decodes every document in the collection and keeps the matching ones.
func (c *collection[T]) FindWhere(ctx context.Context, conds ...bookshelf.Cond) ([]T, error) {
	var records []T
	err := c.db.View(func(txn *badger.Txn) error {
		opt := badger.DefaultIteratorOptions
		opt.Prefix = c.prefix
		itr := txn.NewIterator(opt)
		defer itr.Close()

		for itr.Rewind(); itr.Valid(); itr.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record T
			err := itr.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", itr.Item().Key(), err)
			}

			ok, err := bookshelf.Match(record, conds...)
			if err != nil {
				return err
			}
			if ok {
				records = append(records, record)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.prefix, err)
	}
	return records, nil
}

func (c *collection[T]) Insert(_ context.Context, record T) (T, error) {
	if record.Key() == "" {
		record = record.WithKey(uuid.NewString())
	}

	val, err := json.Marshal(record)
	if err != nil {
		return record, fmt.Errorf("encode %s: %w", record.Key(), err)
	}

	key := c.key(record.Key())
	err = c.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", bookshelf.ErrDuplicateID, record.Key())
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, val)
	})
	if err != nil {
		return record, fmt.Errorf("%s: insert: %w", c.prefix, err)
	}

	c.logger.Debug("inserted document", zap.ByteString("key", key))
	return record, nil
}

// badgerLogger routes badger's own messages through zap.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.s.Infof(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }
