package schema

import (
	"context"
	"errors"

	"github.com/graph-gophers/graphql-go"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"pollex.nl/bookshelf"
)

// Resolver serves the root query and mutation fields.
type Resolver struct {
	store  bookshelf.Store
	logger *zap.Logger
}

func NewResolver(store bookshelf.Store, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

func (r *Resolver) Book(ctx context.Context, args struct{ ID *graphql.ID }) (*bookResolver, error) {
	if args.ID == nil {
		return nil, nil
	}
	return r.book(ctx, string(*args.ID))
}

func (r *Resolver) Author(ctx context.Context, args struct{ ID *graphql.ID }) (*authorResolver, error) {
	if args.ID == nil {
		return nil, nil
	}
	return r.author(ctx, string(*args.ID))
}

func (r *Resolver) Books(ctx context.Context) (*[]*bookResolver, error) {
	books, err := r.store.Books().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.bookList(books), nil
}

func (r *Resolver) Authors(ctx context.Context) (*[]*authorResolver, error) {
	authors, err := r.store.Authors().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	list := lo.Map(authors, func(a bookshelf.Author, _ int) *authorResolver {
		return &authorResolver{root: r, author: a}
	})
	return &list, nil
}

type addAuthorArgs struct {
	Name *string
	Age  *int32
}

func (r *Resolver) AddAuthor(ctx context.Context, args addAuthorArgs) (*authorResolver, error) {
	author, err := r.store.Authors().Insert(ctx, bookshelf.Author{
		Name: lo.FromPtr(args.Name),
		Age:  int(lo.FromPtr(args.Age)),
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("added author", zap.String("id", author.ID), zap.String("name", author.Name))
	return &authorResolver{root: r, author: author}, nil
}

type addBookArgs struct {
	Name     *string
	Genre    *string
	AuthorID *graphql.ID
}

func (r *Resolver) AddBook(ctx context.Context, args addBookArgs) (*bookResolver, error) {
	book, err := r.store.Books().Insert(ctx, bookshelf.Book{
		Name:     lo.FromPtr(args.Name),
		Genre:    lo.FromPtr(args.Genre),
		AuthorID: string(lo.FromPtr(args.AuthorID)),
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("added book", zap.String("id", book.ID), zap.String("authorId", book.AuthorID))
	return &bookResolver{root: r, book: book}, nil
}

// book and author resolve a miss to null instead of an error.
func (r *Resolver) book(ctx context.Context, id string) (*bookResolver, error) {
	book, err := r.store.Books().FindByID(ctx, id)
	if errors.Is(err, bookshelf.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bookResolver{root: r, book: book}, nil
}

func (r *Resolver) author(ctx context.Context, id string) (*authorResolver, error) {
	author, err := r.store.Authors().FindByID(ctx, id)
	if errors.Is(err, bookshelf.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &authorResolver{root: r, author: author}, nil
}

func (r *Resolver) bookList(books []bookshelf.Book) *[]*bookResolver {
	list := lo.Map(books, func(b bookshelf.Book, _ int) *bookResolver {
		return &bookResolver{root: r, book: b}
	})
	return &list
}

type bookResolver struct {
	root *Resolver
	book bookshelf.Book
}

func (b *bookResolver) ID() *graphql.ID {
	id := graphql.ID(b.book.ID)
	return &id
}

func (b *bookResolver) Name() *string  { return &b.book.Name }
func (b *bookResolver) Genre() *string { return &b.book.Genre }

func (b *bookResolver) Author(ctx context.Context) (*authorResolver, error) {
	if b.book.AuthorID == "" {
		return nil, nil
	}
	return b.root.author(ctx, b.book.AuthorID)
}

type authorResolver struct {
	root   *Resolver
	author bookshelf.Author
}

func (a *authorResolver) ID() *graphql.ID {
	id := graphql.ID(a.author.ID)
	return &id
}

func (a *authorResolver) Name() *string { return &a.author.Name }

func (a *authorResolver) Age() *int32 {
	age := int32(a.author.Age)
	return &age
}

func (a *authorResolver) Books(ctx context.Context) (*[]*bookResolver, error) {
	books, err := a.root.store.Books().FindWhere(ctx, bookshelf.Eq(bookshelf.AttrAuthorID, a.author.ID))
	if err != nil {
		return nil, err
	}
	return a.root.bookList(books), nil
}
