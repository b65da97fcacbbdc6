// Package memstore keeps the library in process memory.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"pollex.nl/bookshelf"
)

type Store struct {
	books   *Collection[bookshelf.Book]
	authors *Collection[bookshelf.Author]
}

var _ bookshelf.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		books:   NewCollection[bookshelf.Book](),
		authors: NewCollection[bookshelf.Author](),
	}
}

func (s *Store) Books() bookshelf.Repository[bookshelf.Book]     { return s.books }
func (s *Store) Authors() bookshelf.Repository[bookshelf.Author] { return s.authors }
func (s *Store) Close() error                                    { return nil }

// Collection is an insertion-ordered list of records. Readers share a lock; Insert takes it exclusively.
type Collection[T bookshelf.Record[T]] struct {
	mu      sync.RWMutex
	records []T
}

func NewCollection[T bookshelf.Record[T]]() *Collection[T] {
	return &Collection[T]{}
}

func (c *Collection[T]) FindByID(_ context.Context, id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record, ok := lo.Find(c.records, func(r T) bool { return r.Key() == id })
	if !ok {
		return record, bookshelf.ErrNotFound
	}
	return record, nil
}

func (c *Collection[T]) FindAll(_ context.Context) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]T(nil), c.records...), nil
}

func (c *Collection[T]) FindWhere(_ context.Context, conds ...bookshelf.Cond) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []T
	for _, r := range c.records {
		ok, err := bookshelf.Match(r, conds...)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func (c *Collection[T]) Insert(_ context.Context, record T) (T, error) {
	if record.Key() == "" {
		record = record.WithKey(uuid.NewString())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if lo.ContainsBy(c.records, func(r T) bool { return r.Key() == record.Key() }) {
		return record, fmt.Errorf("%w: %s", bookshelf.ErrDuplicateID, record.Key())
	}
	c.records = append(c.records, record)
	return record, nil
}
