package bookshelf

import (
	"context"
	"errors"
	"fmt"
)

// SampleAuthors and SampleBooks are the library a fresh server starts with when seeded.
var (
	SampleAuthors = []Author{
		{ID: "1", Name: "Patrick Rothfuss", Age: 44},
		{ID: "2", Name: "Brandon Sanderson", Age: 42},
		{ID: "3", Name: "Terry Pratchett", Age: 66},
	}

	SampleBooks = []Book{
		{ID: "1", Name: "Name of the Wind", Genre: "Fantasy", AuthorID: "1"},
		{ID: "2", Name: "The Final Empire", Genre: "Fantasy", AuthorID: "2"},
		{ID: "3", Name: "The Long Earth", Genre: "Sci-Fi", AuthorID: "3"},
		{ID: "4", Name: "The Hero of Ages", Genre: "Fantasy", AuthorID: "2"},
		{ID: "5", Name: "The Color of Magic", Genre: "Fantasy", AuthorID: "3"},
		{ID: "6", Name: "The Light Fantastic", Genre: "Fantasy", AuthorID: "3"},
	}
)

// Seed inserts the sample authors, then the sample books. Records whose id is already
// taken are left as they are, so seeding a persistent store twice is harmless.
func Seed(ctx context.Context, store Store) error {
	for _, author := range SampleAuthors {
		if _, err := store.Authors().Insert(ctx, author); err != nil && !errors.Is(err, ErrDuplicateID) {
			return fmt.Errorf("seed author %s: %w", author.ID, err)
		}
	}
	for _, book := range SampleBooks {
		if _, err := store.Books().Insert(ctx, book); err != nil && !errors.Is(err, ErrDuplicateID) {
			return fmt.Errorf("seed book %s: %w", book.ID, err)
		}
	}
	return nil
}
