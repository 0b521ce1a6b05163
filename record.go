package dynacrud

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// Record is one document of a table. Records are returned by the service
// operations and passed back to Update and Delete.
//
// A Record is not safe for concurrent mutation; Update overwrites its attributes
// in place.
type Record struct {
	table   string
	hashKey string
	attrs   Attributes
}

func newRecord(m *Model, attrs Attributes) *Record {
	return &Record{table: m.Name, hashKey: m.HashKey, attrs: attrs}
}

// Table returns the logical table name the record belongs to, or "" for a nil
// record.
func (r *Record) Table() string {
	if r == nil {
		return ""
	}
	return r.table
}

// ID returns the primary key value of the record.
func (r *Record) ID() any { return r.attrs[r.hashKey] }

// Get returns the value of the named attribute.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.attrs[name]
	return v, ok
}

// Attributes returns a shallow copy of the record attributes.
func (r *Record) Attributes() Attributes {
	out := make(Attributes, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// Decode unmarshals the record into out, which is typically a pointer to a struct
// using dynamodbav tags.
func (r *Record) Decode(out any) error {
	item, err := attributevalue.MarshalMap(r.attrs)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return nil
}
