package dynacrud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynacrud"
	"github.com/nisimpson/dynacrud/dynamock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleTableConfig(defaults dynacrud.Defaults) dynacrud.Config {
	desc := countries()
	desc.Options.Throughput = dynacrud.Throughput{Read: 5, Write: 5}
	return dynacrud.Config{
		TablePrefix: "test-",
		Defaults:    defaults,
		Entities:    map[string]dynacrud.EntityDescriptor{"countries": desc},
	}
}

func describeMissing(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
}

func describeActive(read, write int64) dynamock.DynamoDBAPICall[dynamodb.DescribeTableInput, dynamodb.DescribeTableOutput] {
	return func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
		return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
			TableName:          params.TableName,
			TableStatus:        types.TableStatusActive,
			BillingModeSummary: &types.BillingModeSummary{BillingMode: types.BillingModeProvisioned},
			ProvisionedThroughput: &types.ProvisionedThroughputDescription{
				ReadCapacityUnits:  aws.Int64(read),
				WriteCapacityUnits: aws.Int64(write),
			},
		}}, nil
	}
}

func TestEnsureTables(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing to do", func(t *testing.T) {
		mock := dynamock.NewMockClient(t)
		_, err := dynacrud.New(ctx, singleTableConfig(dynacrud.Defaults{}), testOptions(t, mock)...)
		require.NoError(t, err)
		assert.Empty(t, mock.Calls())
	})

	t.Run("creates missing table", func(t *testing.T) {
		mock := dynamock.NewMockClient(t)
		mock.DescribeTableFunc = describeMissing

		var created *dynamodb.CreateTableInput
		mock.CreateTableFunc = func(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
			created = params
			return &dynamodb.CreateTableOutput{}, nil
		}

		_, err := dynacrud.New(ctx, singleTableConfig(dynacrud.Defaults{Create: true}), testOptions(t, mock)...)
		require.NoError(t, err)

		assert.Equal(t, []string{"DescribeTable", "CreateTable"}, mock.Calls())
		require.NotNil(t, created)
		assert.Equal(t, "test-countries", aws.ToString(created.TableName))
		assert.Equal(t, int64(5), aws.ToInt64(created.ProvisionedThroughput.ReadCapacityUnits))
	})

	t.Run("missing table without create", func(t *testing.T) {
		mock := dynamock.NewMockClient(t)
		mock.DescribeTableFunc = describeMissing

		_, err := dynacrud.New(ctx, singleTableConfig(dynacrud.Defaults{Update: true}), testOptions(t, mock)...)
		require.NoError(t, err)
		assert.Equal(t, []string{"DescribeTable"}, mock.Calls())
	})

	t.Run("updates drifted capacity", func(t *testing.T) {
		mock := dynamock.NewMockClient(t)
		mock.DescribeTableFunc = describeActive(1, 1)

		var updated *dynamodb.UpdateTableInput
		mock.UpdateTableFunc = func(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error) {
			updated = params
			return &dynamodb.UpdateTableOutput{}, nil
		}

		_, err := dynacrud.New(ctx, singleTableConfig(dynacrud.Defaults{Create: true, Update: true}), testOptions(t, mock)...)
		require.NoError(t, err)

		assert.Equal(t, []string{"DescribeTable", "UpdateTable"}, mock.Calls())
		require.NotNil(t, updated)
		assert.Equal(t, int64(5), aws.ToInt64(updated.ProvisionedThroughput.WriteCapacityUnits))
	})

	t.Run("matching capacity is left alone", func(t *testing.T) {
		mock := dynamock.NewMockClient(t)
		mock.DescribeTableFunc = describeActive(5, 5)

		_, err := dynacrud.New(ctx, singleTableConfig(dynacrud.Defaults{Update: true}), testOptions(t, mock)...)
		require.NoError(t, err)
		assert.Equal(t, []string{"DescribeTable"}, mock.Calls())
	})

	t.Run("waits for active", func(t *testing.T) {
		mock := dynamock.NewMockClient(t)
		mock.DescribeTableFunc = describeActive(5, 5)

		_, err := dynacrud.New(ctx, singleTableConfig(dynacrud.Defaults{
			WaitForActive: dynacrud.WaitForActive{Enabled: true, Timeout: time.Second},
		}), testOptions(t, mock)...)
		require.NoError(t, err)
		assert.Equal(t, []string{"DescribeTable", "DescribeTable"}, mock.Calls())
	})

	t.Run("describe failure", func(t *testing.T) {
		mock := dynamock.NewMockClient(t)
		boom := errors.New("boom")
		mock.DescribeTableFunc = func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			return nil, boom
		}

		_, err := dynacrud.New(ctx, singleTableConfig(dynacrud.Defaults{Create: true}), testOptions(t, mock)...)
		assert.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "failed to describe table test-countries")
	})

	t.Run("create failure", func(t *testing.T) {
		mock := dynamock.NewMockClient(t)
		mock.DescribeTableFunc = describeMissing
		inUse := &types.ResourceInUseException{Message: aws.String("in use")}
		mock.CreateTableFunc = func(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
			return nil, inUse
		}

		_, err := dynacrud.New(ctx, singleTableConfig(dynacrud.Defaults{Create: true}), testOptions(t, mock)...)
		assert.ErrorIs(t, err, inUse)
		assert.ErrorContains(t, err, "failed to create table test-countries")
	})
}

func TestEnsureTablesWithMemoryClient(t *testing.T) {
	ctx := context.Background()
	client := dynamock.NewMemoryClient()

	cfg := singleTableConfig(dynacrud.Defaults{
		Create:        true,
		Update:        true,
		WaitForActive: dynacrud.WaitForActive{Enabled: true},
	})
	svc, err := dynacrud.New(ctx, cfg, testOptions(t, client)...)
	require.NoError(t, err)

	out, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String("test-countries")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), aws.ToInt64(out.Table.ProvisionedThroughput.ReadCapacityUnits))

	// switching to on demand reconciles the existing table
	desc := cfg.Entities["countries"]
	desc.Options.Throughput = dynacrud.Throughput{OnDemand: true}
	cfg.Entities["countries"] = desc
	_, err = dynacrud.New(ctx, cfg, testOptions(t, client)...)
	require.NoError(t, err)

	out, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String("test-countries")})
	require.NoError(t, err)
	assert.Equal(t, types.BillingModePayPerRequest, out.Table.BillingModeSummary.BillingMode)
	assert.Equal(t, 1, client.Calls("UpdateTable"))

	require.NoError(t, svc.EnsureTables(ctx))
}
