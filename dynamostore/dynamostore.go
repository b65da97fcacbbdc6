// Package dynamostore keeps the library in a single DynamoDB table. Every item carries a
// PK of "<KIND>#<id>" and an EntityType attribute; the remaining attributes are the
// record's own fields under their JSON names.
package dynamostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pollex.nl/bookshelf"
)

const (
	attrPK         = "PK"
	attrEntityType = "EntityType"

	kindBook   = "BOOK"
	kindAuthor = "AUTHOR"
)

// API is the part of *dynamodb.Client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type Options struct {
	Table  string
	Region string
	// Endpoint overrides the service endpoint, e.g. a local DynamoDB.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type Store struct {
	books   *collection[bookshelf.Book]
	authors *collection[bookshelf.Author]
}

var _ bookshelf.Store = (*Store)(nil)

// Open builds a client from the default AWS configuration chain, overridden by opts.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	var loaders []func(*config.LoadOptions) error
	if opts.Region != "" {
		loaders = append(loaders, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return New(client, opts.Table, logger), nil
}

func New(client API, table string, logger *zap.Logger) *Store {
	return &Store{
		books:   &collection[bookshelf.Book]{client: client, table: table, kind: kindBook, logger: logger},
		authors: &collection[bookshelf.Author]{client: client, table: table, kind: kindAuthor, logger: logger},
	}
}

func (s *Store) Books() bookshelf.Repository[bookshelf.Book]     { return s.books }
func (s *Store) Authors() bookshelf.Repository[bookshelf.Author] { return s.authors }
func (s *Store) Close() error                                    { return nil }

type collection[T bookshelf.Record[T]] struct {
	client API
	table  string
	kind   string
	logger *zap.Logger
}

func (c *collection[T]) pk(id string) string {
	return c.kind + "#" + id
}

func (c *collection[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T

	result, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: c.pk(id)},
		},
	})
	if err != nil {
		return zero, fmt.Errorf("%s: get %s: %w", c.kind, id, err)
	}
	if result.Item == nil {
		return zero, bookshelf.ErrNotFound
	}

	return recordFrom[T](result.Item)
}

func (c *collection[T]) FindAll(ctx context.Context) ([]T, error) {
	return c.FindWhere(ctx)
}

func (c *collection[T]) FindWhere(ctx context.Context, conds ...bookshelf.Cond) ([]T, error) {
	var zero T

	filter := expression.Name(attrEntityType).Equal(expression.Value(c.kind))
	for _, cond := range conds {
		if _, ok := zero.Attr(cond.Attr); !ok {
			return nil, fmt.Errorf("%w: %s", bookshelf.ErrUnknownAttribute, cond.Attr)
		}
		filter = filter.And(expression.Name(cond.Attr).Equal(expression.Value(cond.Value)))
	}

	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(c.client, &dynamodb.ScanInput{
		TableName:                 aws.String(c.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var records []T
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", c.kind, err)
		}
		for _, item := range page.Items {
			record, err := recordFrom[T](item)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
	}
	return records, nil
}

func (c *collection[T]) Insert(ctx context.Context, record T) (T, error) {
	if record.Key() == "" {
		record = record.WithKey(uuid.NewString())
	}

	item, err := itemFor(c.kind, c.pk(record.Key()), record)
	if err != nil {
		return record, err
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name(attrPK).AttributeNotExists()).
		Build()
	if err != nil {
		return record, fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(c.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return record, fmt.Errorf("%w: %s", bookshelf.ErrDuplicateID, record.Key())
		}
		return record, fmt.Errorf("%s: put %s: %w", c.kind, record.Key(), err)
	}

	c.logger.Debug("Entity saved", zap.String("entityType", c.kind), zap.String("entityID", record.Key()))
	return record, nil
}

func itemFor(kind, pk string, record any) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMapWithOptions(record, func(o *attributevalue.EncoderOptions) {
		o.TagKey = "json"
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert entity to item: %w", err)
	}

	item[attrPK] = &types.AttributeValueMemberS{Value: pk}
	item[attrEntityType] = &types.AttributeValueMemberS{Value: kind}
	return item, nil
}

func recordFrom[T any](item map[string]types.AttributeValue) (T, error) {
	var record T
	err := attributevalue.UnmarshalMapWithOptions(item, &record, func(o *attributevalue.DecoderOptions) {
		o.TagKey = "json"
	})
	if err != nil {
		return record, fmt.Errorf("failed to parse item: %w", err)
	}
	return record, nil
}
