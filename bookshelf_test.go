package bookshelf_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollex.nl/bookshelf"
	"pollex.nl/bookshelf/memstore"
)

func TestMatch(t *testing.T) {
	author := bookshelf.Author{ID: "1", Name: "Patrick Rothfuss", Age: 44}

	tests := []struct {
		name  string
		conds []bookshelf.Cond
		want  bool
	}{
		{"no conditions", nil, true},
		{"string equal", []bookshelf.Cond{bookshelf.Eq(bookshelf.AttrName, "Patrick Rothfuss")}, true},
		{"string differs", []bookshelf.Cond{bookshelf.Eq(bookshelf.AttrName, "Terry Pratchett")}, false},
		{"int32 value", []bookshelf.Cond{bookshelf.Eq(bookshelf.AttrAge, int32(44))}, true},
		{"int64 value", []bookshelf.Cond{bookshelf.Eq(bookshelf.AttrAge, int64(45))}, false},
		{"number against string", []bookshelf.Cond{bookshelf.Eq(bookshelf.AttrAge, "44")}, false},
		{"all must hold", []bookshelf.Cond{
			bookshelf.Eq(bookshelf.AttrID, "1"),
			bookshelf.Eq(bookshelf.AttrAge, 30),
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bookshelf.Match(author, tt.conds...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := bookshelf.Match(author, bookshelf.Eq(bookshelf.AttrGenre, "Fantasy"))
	assert.ErrorIs(t, err, bookshelf.ErrUnknownAttribute)
}

func TestWithKey(t *testing.T) {
	book := bookshelf.Book{Name: "Y"}
	assert.Equal(t, "7", book.WithKey("7").Key())
	assert.Empty(t, book.Key())
}

func TestBuildCatalog(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, bookshelf.Seed(ctx, store))

	_, err := store.Books().Insert(ctx, bookshelf.Book{ID: "9", Name: "Lost", AuthorID: "99"})
	require.NoError(t, err)
	_, err = store.Authors().Insert(ctx, bookshelf.Author{ID: "4", Name: "Unpublished"})
	require.NoError(t, err)

	catalog, err := bookshelf.BuildCatalog(ctx, store)
	require.NoError(t, err)

	require.Len(t, catalog.Shelves, 4)
	assert.Equal(t, "1", catalog.Shelves[0].Author.ID)
	assert.Equal(t, []string{"3", "5", "6"}, bookIDs(catalog.Shelves[2].Books))
	assert.NotNil(t, catalog.Shelves[3].Books)
	assert.Empty(t, catalog.Shelves[3].Books)
	assert.Equal(t, []string{"9"}, bookIDs(catalog.Orphans))
}

func TestBuildCatalogEmptyStore(t *testing.T) {
	catalog, err := bookshelf.BuildCatalog(context.Background(), memstore.New())
	require.NoError(t, err)

	assert.NotNil(t, catalog.Shelves)
	assert.NotNil(t, catalog.Orphans)
}

func bookIDs(books []bookshelf.Book) []string {
	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	return ids
}
