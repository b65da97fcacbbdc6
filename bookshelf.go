package bookshelf

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a repository when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownAttribute is returned when a condition names an attribute the record does not have.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrDuplicateID is returned by Insert when a record with the same id already exists.
	ErrDuplicateID = errors.New("duplicate id")
)

// Attribute names shared by every backend.
const (
	AttrID       = "id"
	AttrName     = "name"
	AttrGenre    = "genre"
	AttrAuthorID = "authorId"
	AttrAge      = "age"
)

type Book struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Genre    string `json:"genre"`
	AuthorID string `json:"authorId"`
}

func (b Book) Key() string { return b.ID }

func (b Book) WithKey(id string) Book {
	b.ID = id
	return b
}

func (b Book) Attr(name string) (any, bool) {
	switch name {
	case AttrID:
		return b.ID, true
	case AttrName:
		return b.Name, true
	case AttrGenre:
		return b.Genre, true
	case AttrAuthorID:
		return b.AuthorID, true
	}
	return nil, false
}

type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func (a Author) Key() string { return a.ID }

func (a Author) WithKey(id string) Author {
	a.ID = id
	return a
}

func (a Author) Attr(name string) (any, bool) {
	switch name {
	case AttrID:
		return a.ID, true
	case AttrName:
		return a.Name, true
	case AttrAge:
		return a.Age, true
	}
	return nil, false
}

// Record is implemented by every stored type.
type Record[T any] interface {
	Key() string
	WithKey(id string) T
	Attr(name string) (any, bool)
}

// Cond restricts FindWhere to records whose attribute equals Value.
type Cond struct {
	Attr  string
	Value any
}

func Eq(attr string, value any) Cond {
	return Cond{Attr: attr, Value: value}
}

// Match reports whether r satisfies every condition.
func Match[T Record[T]](r T, conds ...Cond) (bool, error) {
	for _, cond := range conds {
		v, ok := r.Attr(cond.Attr)
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownAttribute, cond.Attr)
		}
		if !equal(v, cond.Value) {
			return false, nil
		}
	}
	return true, nil
}

// equal compares loosely on numbers so an int attribute matches an int32 or int64 value.
func equal(a, b any) bool {
	if x, ok := toInt64(a); ok {
		y, ok := toInt64(b)
		return ok && x == y
	}
	return a == b
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// Repository is the data source for one record type.
type Repository[T Record[T]] interface {
	// FindByID returns ErrNotFound when there is no record with that id.
	FindByID(ctx context.Context, id string) (T, error)
	FindAll(ctx context.Context) ([]T, error)
	FindWhere(ctx context.Context, conds ...Cond) ([]T, error)
	// Insert persists the record, generating an id if it has none, and returns what was stored.
	Insert(ctx context.Context, record T) (T, error)
}

// Store bundles the repositories of one backend.
type Store interface {
	Books() Repository[Book]
	Authors() Repository[Author]
	Close() error
}
