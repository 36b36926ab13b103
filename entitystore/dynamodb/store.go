// Package dynamodb implements storegate.EntityStore on Amazon DynamoDB. The
// table must have a String partition key "pk" and a String sort key "sk".
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/sagarc03/storegate"
	"github.com/sagarc03/storegate/internal/awsconfig"
)

const insertCondition = "attribute_not_exists(pk) AND attribute_not_exists(sk)"

// item represents the DynamoDB item structure for customer records.
type item struct {
	PK          string    `dynamodbav:"pk"`
	SK          string    `dynamodbav:"sk"`
	FirstName   string    `dynamodbav:"first_name"`
	LastName    string    `dynamodbav:"last_name"`
	Email       string    `dynamodbav:"email"`
	PhoneNumber string    `dynamodbav:"phone_number"`
	Timestamp   time.Time `dynamodbav:"timestamp"`
	ETag        string    `dynamodbav:"etag"`
}

// Client defines the DynamoDB client interface used by this store.
// This allows for easy mocking in tests.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config holds the DynamoDB connection settings.
type Config struct {
	awsconfig.Config `mapstructure:",squash" yaml:",inline"`
}

// Store implements storegate.EntityStore for DynamoDB.
type Store struct {
	client    Client
	tableName string
	now       func() time.Time
}

// New creates a Store using the given table. It does not contact DynamoDB.
func New(client Client, tableName string) *Store {
	return &Store{client: client, tableName: tableName, now: time.Now}
}

// NewFromConfig builds a client from cfg and checks that the table exists.
func NewFromConfig(ctx context.Context, cfg Config, tableName string) (*Store, error) {
	awsCfg, err := awsconfig.Load(ctx, cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("dynamodb store: %w: %w", storegate.ErrInvalidConfiguration, err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = cfg.EndpointOrNil()
	})

	store := New(client, tableName)
	if err := store.CheckTable(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// CheckTable describes the table. A missing table is an
// ErrInvalidConfiguration.
func (s *Store) CheckTable(ctx context.Context) error {
	if s.tableName == "" {
		return fmt.Errorf("describe table: %w: table is required", storegate.ErrInvalidConfiguration)
	}

	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	if err != nil {
		return classify("describe table "+s.tableName, err)
	}
	return nil
}

// Insert issues a conditional PutItem that fails if either key attribute is
// already present.
func (s *Store) Insert(ctx context.Context, rec storegate.CustomerRecord) (storegate.CustomerRecord, error) {
	ts := s.now().UTC()
	it := item{
		PK:          rec.PartitionKey,
		SK:          rec.RowKey,
		FirstName:   rec.FirstName,
		LastName:    rec.LastName,
		Email:       rec.Email,
		PhoneNumber: rec.PhoneNumber,
		Timestamp:   ts,
		ETag:        uuid.NewString(),
	}

	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return storegate.CustomerRecord{}, fmt.Errorf("insert: marshal: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String(insertCondition),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return storegate.CustomerRecord{}, fmt.Errorf("insert %s/%s: %w", rec.PartitionKey, rec.RowKey, storegate.ErrInsertConflict)
		}
		return storegate.CustomerRecord{}, classify("insert", err)
	}

	rec.Timestamp = &ts
	rec.ETag = it.ETag

	return rec, nil
}

func (s *Store) Get(ctx context.Context, partitionKey, rowKey string) (storegate.CustomerRecord, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: partitionKey},
			"sk": &types.AttributeValueMemberS{Value: rowKey},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return storegate.CustomerRecord{}, classify("get", err)
	}

	if output.Item == nil {
		return storegate.CustomerRecord{}, storegate.ErrNotFound
	}

	var it item
	if err := attributevalue.UnmarshalMap(output.Item, &it); err != nil {
		return storegate.CustomerRecord{}, fmt.Errorf("get: unmarshal: %w", err)
	}

	ts := it.Timestamp.UTC()
	return storegate.CustomerRecord{
		PartitionKey: it.PK,
		RowKey:       it.SK,
		FirstName:    it.FirstName,
		LastName:     it.LastName,
		Email:        it.Email,
		PhoneNumber:  it.PhoneNumber,
		Timestamp:    &ts,
		ETag:         it.ETag,
	}, nil
}

// classify maps a missing table and credential failures to
// storegate.ErrInvalidConfiguration.
func classify(op string, err error) error {
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return fmt.Errorf("%s: %w: %w", op, storegate.ErrInvalidConfiguration, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException", "UnrecognizedClientException", "AccessDeniedException",
			"InvalidSignatureException", "MissingAuthenticationTokenException":
			return fmt.Errorf("%s: %w: %w", op, storegate.ErrInvalidConfiguration, err)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
