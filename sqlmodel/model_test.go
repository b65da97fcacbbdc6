package sqlmodel_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollex.nl/bookshelf/sqlmodel"
)

var (
	comment = sqlmodel.New[Comment]("book_comments").
		AddSimpleField("id", func(t *Comment) any { return &t.ID }).
		AddSimpleField("name", func(t *Comment) any { return &t.Name }).
		AddSimpleField("book_id", func(t *Comment) any { return &t.BookID })

	book = sqlmodel.New[Book]("books").
		AddSimpleField("id", func(t *Book) any { return &t.ID }).
		AddSimpleField("name", func(t *Book) any { return &t.Name }).
		AddColumnField("authorId", "author_id", func(t *Book) any { return &t.AuthorID }).
		AddRelation("comments",
			sqlmodel.HasMany(comment, "book_id",
				func(book Book) uint64 { return book.ID },
				func(comment Comment) uint64 { return comment.BookID },
				func(book *Book, comments []Comment) { book.Comments = comments },
				"id", "comments.book_id",
			),
		)

	author = sqlmodel.New[Author]("authors").
		AddSimpleField("id", func(t *Author) any { return &t.ID }).
		AddSimpleField("name", func(t *Author) any { return &t.Name }).
		AddField(
			"tags",
			sqlmodel.Col("tags"),
			func(t *Author) (sqlmodel.Ptrs, sqlmodel.Action) {
				var tagString string
				return sqlmodel.Ptrs{&tagString}, func() {
					t.Tags = strings.Split(tagString, ",")
				}
			},
		).
		AddRelation(
			"books",
			sqlmodel.HasMany(book, "author_id",
				func(a Author) uint64 { return a.ID },
				func(b Book) uint64 { return b.AuthorID },
				func(author *Author, books []Book) { author.Books = books },
				"id", "books.authorId",
			),
		)
)

func init() {
	comment.AddRelation(
		"book",
		sqlmodel.HasOne(book, "id",
			func(c Comment) uint64 { return c.BookID },
			func(b Book) uint64 { return b.ID },
			func(c *Comment, b Book) { c.Book = &b },
			"book_id",
		))
	book.AddRelation(
		"author",
		sqlmodel.HasOne(author, "id",
			func(b Book) uint64 { return b.AuthorID },
			func(a Author) uint64 { return a.ID },
			func(b *Book, a Author) { b.Author = &a },
			"authorId",
		))
}

func TestBasicModelUsage(t *testing.T) {
	// Arrange
	db, sq := setupDB(t)
	seed(sq)

	t.Run("select fields", func(t *testing.T) {
		authors, err := author.Query("id", "tags").Collect(context.Background(), db)
		require.NoError(t, err)

		// Assert
		assert.Len(t, authors, 2)
		for i := range 2 {
			assert.Empty(t, authors[i].Name)
			assert.NotEmpty(t, authors[i].ID)
			assert.NotEmpty(t, authors[i].Tags)
		}
	})

	t.Run("select all by not providing fields", func(t *testing.T) {
		authors, err := author.Query().Collect(context.Background(), db)
		require.NoError(t, err)

		// Assert
		assert.Len(t, authors, 2)
		for i := range 2 {
			assert.NotEmpty(t, authors[i].Name)
			assert.NotEmpty(t, authors[i].ID)
			assert.NotEmpty(t, authors[i].Tags)
		}
	})

	t.Run("unknown field is reported", func(t *testing.T) {
		_, err := author.Query("isbn").Collect(context.Background(), db)
		assert.ErrorIs(t, err, sqlmodel.ErrNoSuchField)
	})

	t.Run("nesting into a plain field is reported", func(t *testing.T) {
		_, err := author.Query("name.first").Collect(context.Background(), db)
		assert.ErrorIs(t, err, sqlmodel.ErrNoSuchRelation)
	})
}

func TestBasicModelRelation(t *testing.T) {
	// Arrange
	db, sq := setupDB(t)
	seed(sq)

	t.Run("relation all fields", func(t *testing.T) {
		authors, err := author.Query("id", "books").
			ModifyQuery(sqlmodel.OrderBy("id")).
			Collect(context.Background(), db)
		require.NoError(t, err)

		require.Len(t, authors, 2)
		require.Len(t, authors[0].Books, 2)
		require.Len(t, authors[1].Books, 2)
		require.NotEmpty(t, authors[0].Books[0].Name)
		require.NotEmpty(t, authors[0].Books[1].Name)
		require.NotEmpty(t, authors[0].Books[0].AuthorID)
		require.NotEmpty(t, authors[0].Books[1].AuthorID)
	})

	t.Run("nested relations with specific fields", func(t *testing.T) {
		authors, err := author.Query("id", "name", "books.id", "books.authorId", "books.comments.name", "books.comments.book_id").
			Collect(context.Background(), db)
		require.NoError(t, err)

		// Assert
		require.Len(t, authors, 2)
		for _, a := range authors {
			require.Len(t, a.Books, 2)
			for _, b := range a.Books {
				require.Len(t, b.Comments, 1)
				require.Empty(t, b.Name)
				require.Empty(t, b.Comments[0].ID)
			}
		}
	})

	t.Run("backref", func(t *testing.T) {
		books, err := book.Query("*", "comments", "comments.book").
			ModifyQuery(sqlmodel.WhereEq("id", []uint64{1, 2, 3, 4})).
			Collect(context.Background(), db)
		require.NoError(t, err)

		require.Len(t, books, 4)
		for _, book := range books {
			assert.Equal(t, book.ID, book.Comments[0].Book.ID)
		}
	})

	t.Run("has one leaves dangling references unbound", func(t *testing.T) {
		books, err := book.Query("*", "author").
			Collect(context.Background(), db)
		require.NoError(t, err)

		require.Len(t, books, 5)
		for _, book := range books {
			if book.AuthorID == 99 {
				assert.Nil(t, book.Author)
				continue
			}
			require.NotNil(t, book.Author)
			assert.Equal(t, book.AuthorID, book.Author.ID)
		}
	})

	t.Run("automatically select fields required for relation", func(t *testing.T) {
		authors, err := author.Query("books.name").
			Collect(context.Background(), db)
		require.NoError(t, err)

		// Assert
		require.Len(t, authors, 2)
		require.Len(t, authors[0].Books, 2)
		require.Len(t, authors[1].Books, 2)

		require.NotEmpty(t, authors[0].ID)
		require.NotEmpty(t, authors[0].Books[0].AuthorID)
		require.NotEmpty(t, authors[0].Books[0].Name)
		require.Empty(t, authors[0].Books[0].ID)
	})

	t.Run("CollectOne should return one item", func(t *testing.T) {
		author, err := author.Query().
			ModifyQuery(sqlmodel.WhereEq("id", 2)).
			CollectOne(context.Background(), db)
		require.NoError(t, err)
		assert.NotNil(t, author)
		assert.NotEmpty(t, author.ID)
		assert.NotEmpty(t, author.Name)
		assert.Empty(t, author.Books)
	})

	t.Run("CollectOne should error on many returns", func(t *testing.T) {
		author, err := author.Query().
			CollectOne(context.Background(), db)
		assert.ErrorIs(t, err, sqlmodel.ErrTooManyResults)
		assert.Nil(t, author)
	})

	t.Run("CollectOne should error on no returns", func(t *testing.T) {
		author, err := author.Query().
			ModifyQuery(func(q sqlmodel.Q, table string) sqlmodel.Q { return q.Where("false") }).
			CollectOne(context.Background(), db)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, author)
	})
}

func TestInsert(t *testing.T) {
	db, _ := setupDB(t)
	ctx := context.Background()

	err := book.Insert(ctx, db, &Book{ID: 7, Name: "Inserted", AuthorID: 1})
	require.NoError(t, err)

	got, err := book.Query().ModifyQuery(sqlmodel.WhereEq("id", 7)).CollectOne(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "Inserted", got.Name)
	assert.Equal(t, uint64(1), got.AuthorID)

	column, ok := book.Column("authorId")
	assert.True(t, ok)
	assert.Equal(t, "author_id", column)

	_, ok = author.Column("tags")
	assert.False(t, ok, "tags has a custom scanner and no single column value")
}

func TestInsertReadOnlySchema(t *testing.T) {
	db, _ := setupDB(t)
	readOnly := sqlmodel.New[Author]("authors").
		AddField("name", sqlmodel.Col("name"), sqlmodel.Ptr(func(t *Author) any { return &t.Name }))

	err := readOnly.Insert(context.Background(), db, &Author{Name: "x"})
	assert.ErrorIs(t, err, sqlmodel.ErrReadOnly)
}

func TestQueriesAreImmutable(t *testing.T) {
	db, sq := setupDB(t)
	seed(sq)
	ctx := context.Background()

	base := book.Query("id", "name")
	jeff := base.Where("authorId", 1)
	madonna := base.Where("authorId", 2).Select("author")

	all, err := base.Collect(ctx, db)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	jeffs, err := jeff.Collect(ctx, db)
	require.NoError(t, err)
	assert.Len(t, jeffs, 2)
	for _, b := range jeffs {
		assert.Nil(t, b.Author)
	}

	madonnas, err := madonna.Collect(ctx, db)
	require.NoError(t, err)
	require.Len(t, madonnas, 2)
	for _, b := range madonnas {
		require.NotNil(t, b.Author)
		assert.Equal(t, "Madonna", b.Author.Name)
	}
}

func TestWhereUnknownField(t *testing.T) {
	db, _ := setupDB(t)

	_, err := book.Query().Where("isbn", "x").Collect(context.Background(), db)
	assert.ErrorIs(t, err, sqlmodel.ErrNoSuchField)

	_, err = author.Query().Where("tags", "vocal").Collect(context.Background(), db)
	assert.ErrorIs(t, err, sqlmodel.ErrNoSuchField, "tags is not backed by a single column")
}
