package dynamock

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nisimpson/dynacrud"
)

type DynamoDBAPICall[T, U any] = func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// MockClient is a simple expectation-based mock for DynamoDB operations.
// Set the function for each operation a test expects; any other call fails the test.
type MockClient struct {
	GetFunc           DynamoDBAPICall[dynamodb.GetItemInput, dynamodb.GetItemOutput]
	PutFunc           DynamoDBAPICall[dynamodb.PutItemInput, dynamodb.PutItemOutput]
	DeleteFunc        DynamoDBAPICall[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput]
	QueryFunc         DynamoDBAPICall[dynamodb.QueryInput, dynamodb.QueryOutput]
	ScanFunc          DynamoDBAPICall[dynamodb.ScanInput, dynamodb.ScanOutput]
	CreateTableFunc   DynamoDBAPICall[dynamodb.CreateTableInput, dynamodb.CreateTableOutput]
	UpdateTableFunc   DynamoDBAPICall[dynamodb.UpdateTableInput, dynamodb.UpdateTableOutput]
	DescribeTableFunc DynamoDBAPICall[dynamodb.DescribeTableInput, dynamodb.DescribeTableOutput]

	mu    sync.Mutex
	calls []string
}

var _ dynacrud.DynamoDBClient = (*MockClient)(nil)

// NewMockClient creates a mock whose operations all fail the test until set.
func NewMockClient(t *testing.T) *MockClient {
	return &MockClient{
		GetFunc:           defaultFunc[dynamodb.GetItemInput, dynamodb.GetItemOutput](t, "GetItem"),
		PutFunc:           defaultFunc[dynamodb.PutItemInput, dynamodb.PutItemOutput](t, "PutItem"),
		DeleteFunc:        defaultFunc[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput](t, "DeleteItem"),
		QueryFunc:         defaultFunc[dynamodb.QueryInput, dynamodb.QueryOutput](t, "Query"),
		ScanFunc:          defaultFunc[dynamodb.ScanInput, dynamodb.ScanOutput](t, "Scan"),
		CreateTableFunc:   defaultFunc[dynamodb.CreateTableInput, dynamodb.CreateTableOutput](t, "CreateTable"),
		UpdateTableFunc:   defaultFunc[dynamodb.UpdateTableInput, dynamodb.UpdateTableOutput](t, "UpdateTable"),
		DescribeTableFunc: defaultFunc[dynamodb.DescribeTableInput, dynamodb.DescribeTableOutput](t, "DescribeTable"),
	}
}

func defaultFunc[T, U any](t *testing.T, op string) DynamoDBAPICall[T, U] {
	return func(ctx context.Context, params *T, optFns ...func(*dynamodb.Options)) (*U, error) {
		t.Helper()
		t.Fatalf("unexpected call to %s", op)
		return nil, nil
	}
}

// Calls returns the names of the operations invoked so far, in order.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockClient) record(op string) {
	m.mu.Lock()
	m.calls = append(m.calls, op)
	m.mu.Unlock()
}

// GetItem retrieves an item.
func (m *MockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.record("GetItem")
	return m.GetFunc(ctx, params, optFns...)
}

// PutItem stores an item.
func (m *MockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.record("PutItem")
	return m.PutFunc(ctx, params, optFns...)
}

// DeleteItem removes an item.
func (m *MockClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.record("DeleteItem")
	return m.DeleteFunc(ctx, params, optFns...)
}

// Query performs a query operation.
func (m *MockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.record("Query")
	return m.QueryFunc(ctx, params, optFns...)
}

// Scan performs a scan operation.
func (m *MockClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.record("Scan")
	return m.ScanFunc(ctx, params, optFns...)
}

// CreateTable creates a table.
func (m *MockClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	m.record("CreateTable")
	return m.CreateTableFunc(ctx, params, optFns...)
}

// UpdateTable updates a table.
func (m *MockClient) UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error) {
	m.record("UpdateTable")
	return m.UpdateTableFunc(ctx, params, optFns...)
}

// DescribeTable describes a table.
func (m *MockClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	m.record("DescribeTable")
	return m.DescribeTableFunc(ctx, params, optFns...)
}
