package bookshelf

import (
	"context"
	"sort"

	"github.com/samber/lo"
)

// Shelf is an author together with the books that reference it.
type Shelf struct {
	Author Author `json:"author"`
	Books  []Book `json:"books"`
}

// Catalog is the whole library grouped by author. Orphans are books whose authorId
// does not match any author.
type Catalog struct {
	Shelves []Shelf `json:"shelves"`
	Orphans []Book  `json:"orphans"`
}

// Cataloger is implemented by stores that can build a catalog cheaper than two full scans.
type Cataloger interface {
	Catalog(ctx context.Context) (Catalog, error)
}

// BuildCatalog uses the store's own Catalog when it has one.
func BuildCatalog(ctx context.Context, store Store) (Catalog, error) {
	var (
		catalog Catalog
		err     error
	)
	if c, ok := store.(Cataloger); ok {
		catalog, err = c.Catalog(ctx)
	} else {
		catalog, err = scanCatalog(ctx, store)
	}
	if err != nil {
		return Catalog{}, err
	}

	sortCatalog(&catalog)
	return catalog, nil
}

func scanCatalog(ctx context.Context, store Store) (Catalog, error) {
	authors, err := store.Authors().FindAll(ctx)
	if err != nil {
		return Catalog{}, err
	}
	books, err := store.Books().FindAll(ctx)
	if err != nil {
		return Catalog{}, err
	}

	byAuthor := lo.GroupBy(books, func(b Book) string { return b.AuthorID })
	known := lo.SliceToMap(authors, func(a Author) (string, struct{}) { return a.ID, struct{}{} })

	return Catalog{
		Shelves: lo.Map(authors, func(a Author, _ int) Shelf {
			return Shelf{Author: a, Books: byAuthor[a.ID]}
		}),
		Orphans: lo.Filter(books, func(b Book, _ int) bool {
			_, ok := known[b.AuthorID]
			return !ok
		}),
	}, nil
}

// sortCatalog orders shelves and books by id so exports are stable across backends.
func sortCatalog(c *Catalog) {
	if c.Shelves == nil {
		c.Shelves = []Shelf{}
	}
	sort.Slice(c.Shelves, func(i, j int) bool { return c.Shelves[i].Author.ID < c.Shelves[j].Author.ID })
	for i := range c.Shelves {
		c.Shelves[i].Books = sortBooks(c.Shelves[i].Books)
	}
	c.Orphans = sortBooks(c.Orphans)
}

func sortBooks(books []Book) []Book {
	if books == nil {
		return []Book{}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books
}
