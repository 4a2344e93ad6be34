package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the subset of the DynamoDB API the catalog uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentCommit is returned when another writer committed the
// same version first.
var ErrConcurrentCommit = errors.New("concurrent catalog commit detected")

// Entry is one committed archive generation.
type Entry struct {
	// Version is the monotonically increasing commit version.
	Version uint64
	// Key is the object name of the archived result set.
	Key string
}

// Catalog records archived result-set generations in DynamoDB.
// DynamoDB conditional writes provide the compare-and-swap semantics
// S3 lacks, so multiple writers can commit safely.
//
// Table schema: partition key base_uri (string), sort key version
// (number).
type Catalog struct {
	client    DDBClient
	tableName string
	baseURI   string
}

// NewCatalog creates a catalog over the given table. baseURI
// partitions entries, typically "s3://bucket/prefix".
func NewCatalog(client DDBClient, tableName, baseURI string) *Catalog {
	return &Catalog{client: client, tableName: tableName, baseURI: baseURI}
}

// Latest returns the newest committed entry. The second result is
// false when nothing has been committed yet.
func (c *Catalog) Latest(ctx context.Context) (Entry, bool, error) {
	resp, err := c.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: c.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("catalog query failed: %w", err)
	}
	if len(resp.Items) == 0 {
		return Entry{}, false, nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return Entry{}, false, errors.New("invalid version attribute in catalog")
	}
	keyAttr, ok := item["archive_key"].(*types.AttributeValueMemberS)
	if !ok {
		return Entry{}, false, errors.New("invalid archive_key attribute in catalog")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to parse catalog version: %w", err)
	}
	return Entry{Version: version, Key: keyAttr.Value}, true, nil
}

// Commit records a new generation pointing at key. The write succeeds
// only if no other writer claimed the next version first.
func (c *Catalog) Commit(ctx context.Context, key string) (Entry, error) {
	latest, _, err := c.Latest(ctx)
	if err != nil {
		return Entry{}, err
	}
	next := Entry{Version: latest.Version + 1, Key: key}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":    &types.AttributeValueMemberS{Value: c.baseURI},
			"version":     &types.AttributeValueMemberN{Value: strconv.FormatUint(next.Version, 10)},
			"archive_key": &types.AttributeValueMemberS{Value: key},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return Entry{}, ErrConcurrentCommit
		}
		return Entry{}, fmt.Errorf("catalog commit failed: %w", err)
	}
	return next, nil
}
