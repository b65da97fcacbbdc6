package sqlstore

import (
	"pollex.nl/bookshelf"
	"pollex.nl/bookshelf/sqlmodel"
)

type authorRow struct {
	bookshelf.Author
	Books []bookRow
}

type bookRow struct {
	bookshelf.Book
	Author *bookshelf.Author
}

type schemas struct {
	author *sqlmodel.ModelSchema[authorRow]
	book   *sqlmodel.ModelSchema[bookRow]
}

// newSchemas declares both tables before wiring their relations, since each relation
// needs the other schema.
func newSchemas() schemas {
	author := sqlmodel.New[authorRow]("authors").
		AddSimpleField(bookshelf.AttrID, func(t *authorRow) any { return &t.ID }).
		AddSimpleField(bookshelf.AttrName, func(t *authorRow) any { return &t.Name }).
		AddSimpleField(bookshelf.AttrAge, func(t *authorRow) any { return &t.Age }).
		ModifyQuery(sqlmodel.OrderBy("id"))

	book := sqlmodel.New[bookRow]("books").
		AddSimpleField(bookshelf.AttrID, func(t *bookRow) any { return &t.ID }).
		AddSimpleField(bookshelf.AttrName, func(t *bookRow) any { return &t.Name }).
		AddSimpleField(bookshelf.AttrGenre, func(t *bookRow) any { return &t.Genre }).
		AddColumnField(bookshelf.AttrAuthorID, "author_id", func(t *bookRow) any { return &t.AuthorID }).
		ModifyQuery(sqlmodel.OrderBy("id"))

	author.AddRelation("books",
		sqlmodel.HasMany(book, "author_id",
			func(a authorRow) string { return a.ID },
			func(b bookRow) string { return b.AuthorID },
			func(a *authorRow, books []bookRow) { a.Books = books },
			bookshelf.AttrID, "books."+bookshelf.AttrAuthorID,
		))

	book.AddRelation("author",
		sqlmodel.HasOne(author, "id",
			func(b bookRow) string { return b.AuthorID },
			func(a authorRow) string { return a.ID },
			func(b *bookRow, a authorRow) { b.Author = &a.Author },
			bookshelf.AttrAuthorID,
		))

	return schemas{author: author, book: book}
}

func authorFromRow(r authorRow) bookshelf.Author { return r.Author }
func authorToRow(a bookshelf.Author) authorRow   { return authorRow{Author: a} }
func bookFromRow(r bookRow) bookshelf.Book       { return r.Book }
func bookToRow(b bookshelf.Book) bookRow         { return bookRow{Book: b} }
