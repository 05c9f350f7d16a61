package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/predgt/blobstore"
)

// DDBClient is the interface for DynamoDB operations used by Catalog.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Catalog implements blobstore.Catalog on a DynamoDB table.
//
// Table schema:
//   - Partition key: dataset_id (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name predgt-datasets \
//	  --attribute-definitions AttributeName=dataset_id,AttributeType=S \
//	  --key-schema AttributeName=dataset_id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type Catalog struct {
	client    DDBClient
	tableName string
}

// NewCatalog creates a catalog backed by tableName.
func NewCatalog(client DDBClient, tableName string) *Catalog {
	return &Catalog{client: client, tableName: tableName}
}

// Register writes pub unless its dataset id already exists.
func (c *Catalog) Register(ctx context.Context, pub blobstore.Publication) error {
	if pub.CreatedAt.IsZero() {
		pub.CreatedAt = time.Now().UTC()
	}
	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                marshalPublication(pub),
		ConditionExpression: aws.String("attribute_not_exists(dataset_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return blobstore.ErrAlreadyRegistered
		}
		return fmt.Errorf("failed to register dataset %s: %w", pub.DatasetID, err)
	}
	return nil
}

// Lookup reads the publication recorded for datasetID.
func (c *Catalog) Lookup(ctx context.Context, datasetID string) (blobstore.Publication, error) {
	resp, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"dataset_id": &types.AttributeValueMemberS{Value: datasetID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return blobstore.Publication{}, fmt.Errorf("failed to look up dataset %s: %w", datasetID, err)
	}
	if len(resp.Item) == 0 {
		return blobstore.Publication{}, blobstore.ErrNotFound
	}
	return unmarshalPublication(resp.Item)
}

func marshalPublication(pub blobstore.Publication) map[string]types.AttributeValue {
	num := func(v int64) types.AttributeValue {
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
	}
	str := func(v string) types.AttributeValue {
		return &types.AttributeValueMemberS{Value: v}
	}
	return map[string]types.AttributeValue{
		"dataset_id": str(pub.DatasetID),
		"name":       str(pub.Name),
		"uri":        str(pub.URI),
		"metric":     str(pub.Metric),
		"n":          num(int64(pub.N)),
		"p":          num(int64(pub.P)),
		"x":          num(int64(pub.X)),
		"k":          num(int64(pub.K)),
		"size":       num(pub.Size),
		"checksum":   num(int64(pub.Checksum)),
		"created_at": str(pub.CreatedAt.Format(time.RFC3339Nano)),
	}
}

func unmarshalPublication(item map[string]types.AttributeValue) (blobstore.Publication, error) {
	var pub blobstore.Publication
	var err error

	str := func(name string) string {
		if err != nil {
			return ""
		}
		v, ok := item[name].(*types.AttributeValueMemberS)
		if !ok {
			err = fmt.Errorf("invalid %s attribute in DynamoDB", name)
			return ""
		}
		return v.Value
	}
	num := func(name string) int64 {
		if err != nil {
			return 0
		}
		v, ok := item[name].(*types.AttributeValueMemberN)
		if !ok {
			err = fmt.Errorf("invalid %s attribute in DynamoDB", name)
			return 0
		}
		n, perr := strconv.ParseInt(v.Value, 10, 64)
		if perr != nil {
			err = fmt.Errorf("failed to parse %s: %w", name, perr)
		}
		return n
	}

	pub.DatasetID = str("dataset_id")
	pub.Name = str("name")
	pub.URI = str("uri")
	pub.Metric = str("metric")
	pub.N = int(num("n"))
	pub.P = int(num("p"))
	pub.X = int(num("x"))
	pub.K = int(num("k"))
	pub.Size = num("size")
	pub.Checksum = uint32(num("checksum"))
	created := str("created_at")
	if err != nil {
		return blobstore.Publication{}, err
	}
	pub.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return blobstore.Publication{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return pub, nil
}
