package dynamock

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynacrud"
)

// MemoryClient is an in-memory DynamoDB substitute for unit tests. It supports
// hash-key tables, item reads and writes with condition expressions, and paginated
// Scan and Query with filter expressions. It is safe for concurrent use.
type MemoryClient struct {
	mu     sync.Mutex
	tables map[string]*memoryTable
	calls  map[string]int
}

type memoryTable struct {
	desc    types.TableDescription
	hashKey string
	items   map[string]map[string]types.AttributeValue
}

var _ dynacrud.DynamoDBClient = (*MemoryClient)(nil)

// NewMemoryClient returns an empty MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		tables: make(map[string]*memoryTable),
		calls:  make(map[string]int),
	}
}

// Calls returns how many times the named operation was invoked.
func (c *MemoryClient) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// TotalCalls returns how many operations were invoked.
func (c *MemoryClient) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

// Items returns a copy of every item stored in the named table, ordered by key.
func (c *MemoryClient) Items(tableName string) []map[string]types.AttributeValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableName]
	if !ok {
		return nil
	}
	out := make([]map[string]types.AttributeValue, 0, len(t.items))
	for _, k := range t.sortedKeys() {
		out = append(out, copyItem(t.items[k]))
	}
	return out
}

// lookup counts the call and returns the named table. The caller must hold c.mu.
func (c *MemoryClient) lookup(op string, name *string) (*memoryTable, error) {
	c.calls[op]++
	t, ok := c.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Requested resource not found: Table: %s not found", aws.ToString(name))),
		}
	}
	return t, nil
}

// CreateTable registers a table. Only the hash key of the key schema is used.
func (c *MemoryClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["CreateTable"]++

	name := aws.ToString(params.TableName)
	if _, ok := c.tables[name]; ok {
		return nil, &types.ResourceInUseException{
			Message: aws.String(fmt.Sprintf("Table already exists: %s", name)),
		}
	}

	t := &memoryTable{items: make(map[string]map[string]types.AttributeValue)}
	for _, ks := range params.KeySchema {
		if ks.KeyType == types.KeyTypeHash {
			t.hashKey = aws.ToString(ks.AttributeName)
		}
	}
	if t.hashKey == "" {
		return nil, fmt.Errorf("table %s has no hash key", name)
	}

	t.desc = types.TableDescription{
		TableName:            aws.String(name),
		TableStatus:          types.TableStatusActive,
		KeySchema:            params.KeySchema,
		AttributeDefinitions: params.AttributeDefinitions,
	}
	t.applyBilling(params.BillingMode, params.ProvisionedThroughput)
	c.tables[name] = t

	desc := t.desc
	return &dynamodb.CreateTableOutput{TableDescription: &desc}, nil
}

// DescribeTable returns the table description. Tables are always ACTIVE.
func (c *MemoryClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup("DescribeTable", params.TableName)
	if err != nil {
		return nil, err
	}
	desc := t.desc
	desc.ItemCount = aws.Int64(int64(len(t.items)))
	return &dynamodb.DescribeTableOutput{Table: &desc}, nil
}

// UpdateTable changes billing mode and provisioned throughput.
func (c *MemoryClient) UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup("UpdateTable", params.TableName)
	if err != nil {
		return nil, err
	}
	mode := params.BillingMode
	if mode == "" && t.desc.BillingModeSummary != nil {
		mode = t.desc.BillingModeSummary.BillingMode
	}
	tp := params.ProvisionedThroughput
	if tp == nil && mode == types.BillingModeProvisioned && t.desc.ProvisionedThroughput != nil {
		tp = &types.ProvisionedThroughput{
			ReadCapacityUnits:  t.desc.ProvisionedThroughput.ReadCapacityUnits,
			WriteCapacityUnits: t.desc.ProvisionedThroughput.WriteCapacityUnits,
		}
	}
	t.applyBilling(mode, tp)
	desc := t.desc
	return &dynamodb.UpdateTableOutput{TableDescription: &desc}, nil
}

// GetItem returns the item with the given key, or an empty output when absent.
func (c *MemoryClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup("GetItem", params.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[k]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

// PutItem stores the item, replacing any item with the same key. A condition
// expression is evaluated against the existing item first.
func (c *MemoryClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup("PutItem", params.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil {
		ok, err := Evaluate(aws.ToString(params.ConditionExpression),
			params.ExpressionAttributeNames, params.ExpressionAttributeValues, t.items[k])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{
				Message: aws.String("The conditional request failed"),
			}
		}
	}
	t.items[k] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem removes the item with the given key. Deleting a missing item succeeds.
func (c *MemoryClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup("DeleteItem", params.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	delete(t.items, k)
	return &dynamodb.DeleteItemOutput{}, nil
}

// Scan reads items in key order. Limit bounds the items evaluated, not the items
// returned, matching DynamoDB.
func (c *MemoryClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup("Scan", params.TableName)
	if err != nil {
		return nil, err
	}
	items, lastKey, scanned, err := t.read(readParams{
		filter:   aws.ToString(params.FilterExpression),
		names:    params.ExpressionAttributeNames,
		values:   params.ExpressionAttributeValues,
		limit:    aws.ToInt32(params.Limit),
		startKey: params.ExclusiveStartKey,
	})
	if err != nil {
		return nil, err
	}
	return &dynamodb.ScanOutput{
		Items:            items,
		Count:            int32(len(items)),
		ScannedCount:     scanned,
		LastEvaluatedKey: lastKey,
	}, nil
}

// Query reads the items matching the key condition, then applies the filter.
func (c *MemoryClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup("Query", params.TableName)
	if err != nil {
		return nil, err
	}
	if params.KeyConditionExpression == nil {
		return nil, fmt.Errorf("query on %s requires a key condition", t.name())
	}
	items, lastKey, scanned, err := t.read(readParams{
		keyCond:  aws.ToString(params.KeyConditionExpression),
		filter:   aws.ToString(params.FilterExpression),
		names:    params.ExpressionAttributeNames,
		values:   params.ExpressionAttributeValues,
		limit:    aws.ToInt32(params.Limit),
		startKey: params.ExclusiveStartKey,
	})
	if err != nil {
		return nil, err
	}
	return &dynamodb.QueryOutput{
		Items:            items,
		Count:            int32(len(items)),
		ScannedCount:     scanned,
		LastEvaluatedKey: lastKey,
	}, nil
}

type readParams struct {
	keyCond  string
	filter   string
	names    map[string]string
	values   map[string]types.AttributeValue
	limit    int32
	startKey map[string]types.AttributeValue
}

func (t *memoryTable) read(p readParams) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, int32, error) {
	keys := t.sortedKeys()

	start := 0
	if p.startKey != nil {
		k, err := t.keyOf(p.startKey)
		if err != nil {
			return nil, nil, 0, err
		}
		start = sort.SearchStrings(keys, k)
		if start < len(keys) && keys[start] == k {
			start++
		}
	}

	var (
		items   = []map[string]types.AttributeValue{}
		scanned int32
	)
	for i := start; i < len(keys); i++ {
		item := t.items[keys[i]]
		if p.keyCond != "" {
			ok, err := Evaluate(p.keyCond, p.names, p.values, item)
			if err != nil {
				return nil, nil, 0, err
			}
			if !ok {
				continue
			}
		}

		scanned++
		match := true
		if p.filter != "" {
			ok, err := Evaluate(p.filter, p.names, p.values, item)
			if err != nil {
				return nil, nil, 0, err
			}
			match = ok
		}
		if match {
			items = append(items, copyItem(item))
		}

		if p.limit > 0 && scanned == p.limit {
			if i < len(keys)-1 {
				return items, map[string]types.AttributeValue{t.hashKey: item[t.hashKey]}, scanned, nil
			}
			break
		}
	}
	return items, nil, scanned, nil
}

func (t *memoryTable) applyBilling(mode types.BillingMode, tp *types.ProvisionedThroughput) {
	if mode == "" {
		mode = types.BillingModeProvisioned
	}
	t.desc.BillingModeSummary = &types.BillingModeSummary{BillingMode: mode}
	t.desc.ProvisionedThroughput = nil
	if mode == types.BillingModeProvisioned && tp != nil {
		t.desc.ProvisionedThroughput = &types.ProvisionedThroughputDescription{
			ReadCapacityUnits:  tp.ReadCapacityUnits,
			WriteCapacityUnits: tp.WriteCapacityUnits,
		}
	}
}

func (t *memoryTable) name() string { return aws.ToString(t.desc.TableName) }

func (t *memoryTable) sortedKeys() []string {
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// keyOf encodes the hash key attribute of item as a map key.
func (t *memoryTable) keyOf(item map[string]types.AttributeValue) (string, error) {
	switch v := item[t.hashKey].(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value, nil
	case *types.AttributeValueMemberN:
		return "N:" + v.Value, nil
	case *types.AttributeValueMemberB:
		return "B:" + base64.StdEncoding.EncodeToString(v.Value), nil
	case nil:
		return "", fmt.Errorf("missing key attribute %s for table %s", t.hashKey, t.name())
	default:
		return "", fmt.Errorf("key attribute %s of table %s has unsupported type %T", t.hashKey, t.name(), v)
	}
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
