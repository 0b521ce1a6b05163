package dynacrud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoDBClient is the subset of the DynamoDB API used by the service. It is
// satisfied by *dynamodb.Client and by the test doubles in dynamock.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

var _ DynamoDBClient = (*dynamodb.Client)(nil)

// Local endpoints accept any signature, but the SDK refuses to sign without
// credentials.
const localCredential = "local"

// NewClient builds a DynamoDB client from cfg. Credentials and region are passed
// to the SDK as given; when cfg.IsLocalDB is set the client targets
// cfg.LocalDatabaseURL.
func NewClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.AWS.Region != "" {
		opts = append(opts, config.WithRegion(cfg.AWS.Region))
	} else if cfg.IsLocalDB {
		opts = append(opts, config.WithRegion("us-east-1"))
	}
	if cfg.AWS.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	switch {
	case cfg.AWS.AccessKeyID != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, cfg.AWS.SessionToken),
		))
	case cfg.IsLocalDB:
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(localCredential, localCredential, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.IsLocalDB {
			o.BaseEndpoint = aws.String(cfg.LocalDatabaseURL)
		}
	}), nil
}
