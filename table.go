package dynacrud

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// DefaultReadCapacity is the provisioned read capacity used when an entity does not set one.
	DefaultReadCapacity = 1
	// DefaultWriteCapacity is the provisioned write capacity used when an entity does not set one.
	DefaultWriteCapacity = 1
)

// MarshalGet marshals id into a get item request.
func (m *Model) MarshalGet(id any) (*dynamodb.GetItemInput, error) {
	key, err := m.key(id)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemInput{
		TableName: aws.String(m.TableName),
		Key:       key,
	}, nil
}

// MarshalPut marshals attrs into a put item request. When mustNotExist is set the
// request is conditioned on the hash key being absent, so an existing record is
// never overwritten.
func (m *Model) MarshalPut(attrs Attributes, mustNotExist bool) (*dynamodb.PutItemInput, error) {
	item, err := m.marshalItem(attrs)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(m.TableName),
		Item:      item,
	}
	if !mustNotExist {
		return input, nil
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name(m.HashKey).AttributeNotExists()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}
	input.ConditionExpression = expr.Condition()
	input.ExpressionAttributeNames = expr.Names()
	return input, nil
}

// MarshalDelete marshals the record key into a delete item request.
func (m *Model) MarshalDelete(id any) (*dynamodb.DeleteItemInput, error) {
	key, err := m.key(id)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DeleteItemInput{
		TableName: aws.String(m.TableName),
		Key:       key,
	}, nil
}

// MarshalCreateTable marshals the model into a create table request.
func (m *Model) MarshalCreateTable() *dynamodb.CreateTableInput {
	input := &dynamodb.CreateTableInput{
		TableName: aws.String(m.TableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String(m.HashKey),
				AttributeType: m.keyType(),
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String(m.HashKey),
				KeyType:       types.KeyTypeHash,
			},
		},
	}

	if m.Descriptor.Options.Throughput.OnDemand {
		input.BillingMode = types.BillingModePayPerRequest
	} else {
		input.BillingMode = types.BillingModeProvisioned
		input.ProvisionedThroughput = m.throughput()
	}
	return input
}

// MarshalUpdateTable compares the live table description with the model and
// returns the update request needed to reconcile billing and throughput. The
// boolean result is false when the table already matches.
func (m *Model) MarshalUpdateTable(desc *types.TableDescription) (*dynamodb.UpdateTableInput, bool) {
	input := &dynamodb.UpdateTableInput{TableName: aws.String(m.TableName)}

	onDemand := desc.BillingModeSummary != nil &&
		desc.BillingModeSummary.BillingMode == types.BillingModePayPerRequest

	want := m.Descriptor.Options.Throughput
	switch {
	case want.OnDemand && onDemand:
		return nil, false
	case want.OnDemand:
		input.BillingMode = types.BillingModePayPerRequest
		return input, true
	}

	tp := m.throughput()
	if !onDemand && desc.ProvisionedThroughput != nil &&
		aws.ToInt64(desc.ProvisionedThroughput.ReadCapacityUnits) == aws.ToInt64(tp.ReadCapacityUnits) &&
		aws.ToInt64(desc.ProvisionedThroughput.WriteCapacityUnits) == aws.ToInt64(tp.WriteCapacityUnits) {
		return nil, false
	}

	if onDemand {
		input.BillingMode = types.BillingModeProvisioned
	}
	input.ProvisionedThroughput = tp
	return input, true
}

func (m *Model) throughput() *types.ProvisionedThroughput {
	read, write := m.Descriptor.Options.Throughput.Read, m.Descriptor.Options.Throughput.Write
	if read == 0 {
		read = DefaultReadCapacity
	}
	if write == 0 {
		write = DefaultWriteCapacity
	}
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(read),
		WriteCapacityUnits: aws.Int64(write),
	}
}

func (m *Model) keyType() types.ScalarAttributeType {
	switch m.Descriptor.Fields[m.HashKey].Type {
	case TypeNumber:
		return types.ScalarAttributeTypeN
	case TypeBinary:
		return types.ScalarAttributeTypeB
	default:
		return types.ScalarAttributeTypeS
	}
}
