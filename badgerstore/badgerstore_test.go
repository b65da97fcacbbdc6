package badgerstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pollex.nl/bookshelf"
	"pollex.nl/bookshelf/badgerstore"
	"pollex.nl/bookshelf/internal/storetest"
)

func openInMemory(t *testing.T) *badgerstore.Store {
	store, err := badgerstore.Open("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) bookshelf.Store { return openInMemory(t) })
}

func TestCollectionsDoNotOverlap(t *testing.T) {
	ctx := context.Background()
	store := openInMemory(t)

	_, err := store.Books().Insert(ctx, bookshelf.Book{ID: "1", Name: "Book one"})
	require.NoError(t, err)
	_, err = store.Authors().Insert(ctx, bookshelf.Author{ID: "1", Name: "Author one"})
	require.NoError(t, err)

	books, err := store.Books().FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []bookshelf.Book{{ID: "1", Name: "Book one"}}, books)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := badgerstore.Open(dir, zap.NewNop())
	require.NoError(t, err)
	author, err := store.Authors().Insert(ctx, bookshelf.Author{Name: "X", Age: 30})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = badgerstore.Open(dir, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Authors().FindByID(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, author, got)
}
