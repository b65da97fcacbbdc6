// Package storetest holds the behaviour every bookshelf.Store backend must share.
package storetest

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollex.nl/bookshelf"
)

// Run seeds a fresh store from open and checks it against the sample library.
func Run(t *testing.T, open func(t *testing.T) bookshelf.Store) {
	ctx := context.Background()

	store := open(t)
	require.NoError(t, bookshelf.Seed(ctx, store))

	t.Run("find by id", func(t *testing.T) {
		for _, want := range bookshelf.SampleBooks {
			got, err := store.Books().FindByID(ctx, want.ID)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		for _, want := range bookshelf.SampleAuthors {
			got, err := store.Authors().FindByID(ctx, want.ID)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("find by missing id", func(t *testing.T) {
		_, err := store.Books().FindByID(ctx, "does-not-exist")
		assert.ErrorIs(t, err, bookshelf.ErrNotFound)
		_, err = store.Authors().FindByID(ctx, "does-not-exist")
		assert.ErrorIs(t, err, bookshelf.ErrNotFound)
	})

	t.Run("find all", func(t *testing.T) {
		books, err := store.Books().FindAll(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, bookshelf.SampleBooks, books)

		authors, err := store.Authors().FindAll(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, bookshelf.SampleAuthors, authors)
	})

	t.Run("find where", func(t *testing.T) {
		for _, author := range bookshelf.SampleAuthors {
			got, err := store.Books().FindWhere(ctx, bookshelf.Eq(bookshelf.AttrAuthorID, author.ID))
			require.NoError(t, err)

			want := lo.Filter(bookshelf.SampleBooks, func(b bookshelf.Book, _ int) bool { return b.AuthorID == author.ID })
			assert.ElementsMatch(t, want, got)
		}

		got, err := store.Books().FindWhere(ctx,
			bookshelf.Eq(bookshelf.AttrAuthorID, "3"),
			bookshelf.Eq(bookshelf.AttrName, "The Long Earth"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "3", got[0].ID)

		none, err := store.Books().FindWhere(ctx, bookshelf.Eq(bookshelf.AttrGenre, "Poetry"))
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("find where unknown attribute", func(t *testing.T) {
		_, err := store.Authors().FindWhere(ctx, bookshelf.Eq("isbn", "x"))
		assert.ErrorIs(t, err, bookshelf.ErrUnknownAttribute)
	})

	t.Run("insert", func(t *testing.T) {
		author, err := store.Authors().Insert(ctx, bookshelf.Author{Name: "X", Age: 30})
		require.NoError(t, err)
		require.NotEmpty(t, author.ID)

		found, err := store.Authors().FindByID(ctx, author.ID)
		require.NoError(t, err)
		assert.Equal(t, "X", found.Name)
		assert.Equal(t, 30, found.Age)

		book, err := store.Books().Insert(ctx, bookshelf.Book{Name: "Y", Genre: "Z", AuthorID: author.ID})
		require.NoError(t, err)
		require.NotEmpty(t, book.ID)

		books, err := store.Books().FindWhere(ctx, bookshelf.Eq(bookshelf.AttrAuthorID, author.ID))
		require.NoError(t, err)
		assert.Equal(t, []bookshelf.Book{book}, books)
	})

	t.Run("insert duplicate id", func(t *testing.T) {
		_, err := store.Authors().Insert(ctx, bookshelf.Author{ID: "1", Name: "Impostor"})
		assert.ErrorIs(t, err, bookshelf.ErrDuplicateID)

		got, err := store.Authors().FindByID(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "Patrick Rothfuss", got.Name)
	})

	t.Run("seed twice", func(t *testing.T) {
		require.NoError(t, bookshelf.Seed(ctx, store))

		books, err := store.Books().FindWhere(ctx, bookshelf.Eq(bookshelf.AttrAuthorID, "2"))
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})

	t.Run("catalog", func(t *testing.T) {
		orphan, err := store.Books().Insert(ctx, bookshelf.Book{Name: "Lost", AuthorID: "nobody"})
		require.NoError(t, err)

		catalog, err := bookshelf.BuildCatalog(ctx, store)
		require.NoError(t, err)

		shelves := lo.SliceToMap(catalog.Shelves, func(s bookshelf.Shelf) (string, bookshelf.Shelf) { return s.Author.ID, s })
		assert.Len(t, shelves["3"].Books, 3)
		assert.Len(t, shelves["1"].Books, 1)
		assert.Equal(t, []bookshelf.Book{orphan}, catalog.Orphans)
	})
}
