package dynamostore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pollex.nl/bookshelf"
)

// fakeTable keeps items by PK. It does not evaluate filter expressions, so Scan is not supported.
type fakeTable struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: map[string]map[string]types.AttributeValue{}}
}

func pkOf(item map[string]types.AttributeValue) string {
	return item[attrPK].(*types.AttributeValueMemberS).Value
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[pkOf(in.Key)]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk := pkOf(in.Item)
	if _, exists := f.items[pk]; exists && in.ConditionExpression != nil {
		return nil, &types.ConditionalCheckFailedException{}
	}
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return nil, errors.New("scan not supported by fake")
}

func TestInsertAndFindByID(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	store := New(table, "library", zap.NewNop())

	author, err := store.Authors().Insert(ctx, bookshelf.Author{Name: "X", Age: 30})
	require.NoError(t, err)
	require.NotEmpty(t, author.ID)

	got, err := store.Authors().FindByID(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, author, got)

	book, err := store.Books().Insert(ctx, bookshelf.Book{ID: author.ID, Name: "Y", Genre: "Z", AuthorID: author.ID})
	require.NoError(t, err, "books and authors with the same id live under different keys")

	gotBook, err := store.Books().FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book, gotBook)

	_, err = store.Books().FindByID(ctx, "missing")
	assert.ErrorIs(t, err, bookshelf.ErrNotFound)
}

func TestInsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := New(newFakeTable(), "library", zap.NewNop())

	_, err := store.Books().Insert(ctx, bookshelf.Book{ID: "1", Name: "first"})
	require.NoError(t, err)
	_, err = store.Books().Insert(ctx, bookshelf.Book{ID: "1", Name: "second"})
	assert.ErrorIs(t, err, bookshelf.ErrDuplicateID)
}

func TestItemLayout(t *testing.T) {
	item, err := itemFor(kindBook, "BOOK#4", bookshelf.SampleBooks[3])
	require.NoError(t, err)

	assert.Equal(t, &types.AttributeValueMemberS{Value: "BOOK#4"}, item[attrPK])
	assert.Equal(t, &types.AttributeValueMemberS{Value: kindBook}, item[attrEntityType])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "2"}, item["authorId"])

	book, err := recordFrom[bookshelf.Book](item)
	require.NoError(t, err)
	assert.Equal(t, bookshelf.SampleBooks[3], book)
}

func TestFindWhereRejectsUnknownAttribute(t *testing.T) {
	store := New(newFakeTable(), "library", zap.NewNop())

	_, err := store.Authors().FindWhere(context.Background(), bookshelf.Eq(bookshelf.AttrGenre, "Fantasy"))
	assert.ErrorIs(t, err, bookshelf.ErrUnknownAttribute)
}
