package dynacrud

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Item is an alias for the dynamodb attribute value map.
type Item = map[string]types.AttributeValue

// Model binds a logical table name to a validated entity descriptor. Models are
// immutable once built and safe for concurrent use.
type Model struct {
	Name       string           // Logical table name used by callers
	TableName  string           // Physical DynamoDB table name
	HashKey    string           // Name of the hash key field
	Descriptor EntityDescriptor // Descriptor the model was built from

	fields []string // sorted field names
	tick   Clock
	newID  func() string
}

// ModelOption configures optional behavior of a Model.
type ModelOption func(*Model)

// WithModelClock overrides the clock used for "now" values and timestamps.
func WithModelClock(tick Clock) ModelOption {
	return func(m *Model) { m.tick = tick }
}

// WithIDGenerator overrides the generator used for "uuid" values.
func WithIDGenerator(fn func() string) ModelOption {
	return func(m *Model) { m.newID = fn }
}

// NewModel validates desc and returns the model for the named table. The
// descriptor must declare exactly one hash key of type string, number or binary,
// and every default must match its field type.
func NewModel(name, tableName string, desc EntityDescriptor, opts ...ModelOption) (*Model, error) {
	if name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if tableName == "" {
		tableName = name
	}
	if err := validate.Struct(desc); err != nil {
		return nil, fmt.Errorf("invalid entity %s: %w", name, err)
	}

	m := &Model{
		Name:       name,
		TableName:  tableName,
		Descriptor: desc,
		tick:       DefaultClock,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}

	for fieldName, f := range desc.Fields {
		m.fields = append(m.fields, fieldName)

		if f.RangeKey {
			return nil, fmt.Errorf("invalid entity %s: field %s: range keys are not supported", name, fieldName)
		}
		if f.HashKey {
			if m.HashKey != "" {
				return nil, fmt.Errorf("invalid entity %s: multiple hash keys (%s, %s)", name, m.HashKey, fieldName)
			}
			switch f.Type {
			case TypeString, TypeNumber, TypeBinary:
			default:
				return nil, fmt.Errorf("invalid entity %s: hash key %s must be string, number or binary, got %s", name, fieldName, f.Type)
			}
			m.HashKey = fieldName
		}
		if f.Default != nil {
			if err := checkType(f.Type, f.Default); err != nil {
				return nil, fmt.Errorf("invalid entity %s: default for %s: %w", name, fieldName, err)
			}
		}
		switch {
		case f.Generate == GenerateUUID && f.Type != TypeString:
			return nil, fmt.Errorf("invalid entity %s: field %s: uuid generator requires a string field", name, fieldName)
		case f.Generate == GenerateNow && f.Type != TypeNumber && f.Type != TypeDate:
			return nil, fmt.Errorf("invalid entity %s: field %s: now generator requires a number or date field", name, fieldName)
		}
	}
	sort.Strings(m.fields)

	if m.HashKey == "" {
		return nil, fmt.Errorf("invalid entity %s: no hash key declared", name)
	}
	ts := desc.Options.Timestamps
	if ts.CreatedAt == m.HashKey || ts.UpdatedAt == m.HashKey {
		return nil, fmt.Errorf("invalid entity %s: timestamp attribute collides with hash key %s", name, m.HashKey)
	}

	return m, nil
}

// Fields returns the declared field names in sorted order.
func (m *Model) Fields() []string {
	return append([]string(nil), m.fields...)
}

// Field returns the attributes of the named field.
func (m *Model) Field(name string) (Field, bool) {
	f, ok := m.Descriptor.Fields[name]
	return f, ok
}

func (m *Model) known(name string) bool {
	if _, ok := m.Descriptor.Fields[name]; ok {
		return true
	}
	ts := m.Descriptor.Options.Timestamps
	return name != "" && (name == ts.CreatedAt || name == ts.UpdatedAt)
}

// prepare returns the attribute set that will be written for data. When creating,
// defaults and generated values fill absent fields and the creation timestamp is
// set. The update timestamp is refreshed on every write.
func (m *Model) prepare(data Attributes, creating bool) (Attributes, error) {
	out := make(Attributes, len(data))
	for k, v := range data {
		if v == nil {
			continue
		}
		if !m.Descriptor.Options.SaveUnknown && !m.known(k) {
			continue
		}
		out[k] = v
	}

	now := m.tick()
	if creating {
		for _, name := range m.fields {
			if _, ok := out[name]; ok {
				continue
			}
			f := m.Descriptor.Fields[name]
			switch {
			case f.Generate == GenerateUUID:
				out[name] = m.newID()
			case f.Generate == GenerateNow && f.Type == TypeDate:
				out[name] = now
			case f.Generate == GenerateNow:
				out[name] = now.UnixMilli()
			case f.Default != nil:
				out[name] = f.Default
			}
		}
		if ts := m.Descriptor.Options.Timestamps.CreatedAt; ts != "" {
			out[ts] = now.UnixMilli()
		}
	}
	if ts := m.Descriptor.Options.Timestamps.UpdatedAt; ts != "" {
		out[ts] = now.UnixMilli()
	}

	for _, name := range m.fields {
		f := m.Descriptor.Fields[name]
		v, ok := out[name]
		if !ok {
			if f.Required || f.HashKey {
				return nil, fmt.Errorf("%s is required", name)
			}
			continue
		}
		if err := checkType(f.Type, v); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return out, nil
}

// marshalItem converts attrs into a dynamodb item, encoding set fields as sets.
func (m *Model) marshalItem(attrs Attributes) (Item, error) {
	item, err := attributevalue.MarshalMap(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	for name, av := range item {
		f, ok := m.Descriptor.Fields[name]
		if !ok || (f.Type != TypeStringSet && f.Type != TypeNumberSet) {
			continue
		}
		if _, null := av.(*types.AttributeValueMemberNULL); null {
			delete(item, name)
			continue
		}
		list, ok := av.(*types.AttributeValueMemberL)
		if !ok {
			continue
		}
		// dynamodb rejects empty sets
		if len(list.Value) == 0 {
			delete(item, name)
			continue
		}
		if f.Type == TypeStringSet {
			set := &types.AttributeValueMemberSS{}
			for _, v := range list.Value {
				set.Value = append(set.Value, v.(*types.AttributeValueMemberS).Value)
			}
			item[name] = set
		} else {
			set := &types.AttributeValueMemberNS{}
			for _, v := range list.Value {
				set.Value = append(set.Value, v.(*types.AttributeValueMemberN).Value)
			}
			item[name] = set
		}
	}
	return item, nil
}

// decodeItem converts a dynamodb item into plain Go attributes. Numbers decode
// as attributevalue.Number so values beyond float64 precision survive a
// read-merge-put.
func (m *Model) decodeItem(item Item) (Attributes, error) {
	out := Attributes{}
	err := attributevalue.UnmarshalMapWithOptions(item, &out, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return out, nil
}

// key returns the primary key item for id.
func (m *Model) key(id any) (Item, error) {
	av, err := attributevalue.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}
	return Item{m.HashKey: av}, nil
}

// sameKey reports whether a and b identify the same record. Number keys are
// compared by value, so 7, 7.0 and attributevalue.Number("7") are equal.
func (m *Model) sameKey(a, b any) bool {
	av, err := attributevalue.Marshal(a)
	if err != nil {
		return false
	}
	bv, err := attributevalue.Marshal(b)
	if err != nil {
		return false
	}
	switch x := av.(type) {
	case *types.AttributeValueMemberS:
		y, ok := bv.(*types.AttributeValueMemberS)
		return ok && x.Value == y.Value
	case *types.AttributeValueMemberB:
		y, ok := bv.(*types.AttributeValueMemberB)
		return ok && bytes.Equal(x.Value, y.Value)
	case *types.AttributeValueMemberN:
		y, ok := bv.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		xf, okx := new(big.Float).SetString(x.Value)
		yf, oky := new(big.Float).SetString(y.Value)
		return okx && oky && xf.Cmp(yf) == 0
	}
	return false
}

// checkType reports whether v can be stored in a field of type t.
func checkType(t FieldType, v any) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	ok := false
	switch t {
	case TypeString:
		ok = isString(rv)
	case TypeNumber:
		ok = isNumberValue(rv)
	case TypeBoolean:
		ok = rv.Kind() == reflect.Bool
	case TypeDate:
		switch d := rv.Interface().(type) {
		case time.Time:
			ok = true
		case string:
			_, err := time.Parse(time.RFC3339, d)
			ok = err == nil
		}
	case TypeBinary:
		ok = rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8
	case TypeMap:
		ok = rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct
	case TypeList:
		ok = (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) &&
			rv.Type().Elem().Kind() != reflect.Uint8
	case TypeStringSet:
		ok = elemsAre(rv, isString)
	case TypeNumberSet:
		ok = elemsAre(rv, isNumberValue)
	}
	if !ok {
		return fmt.Errorf("value of type %T is not a valid %s", v, t)
	}
	return nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

var numberType = reflect.TypeOf(attributevalue.Number(""))

func isString(rv reflect.Value) bool {
	return rv.Kind() == reflect.String && rv.Type() != numberType
}

// isNumberValue accepts Go numeric kinds and well formed attributevalue.Number
// values.
func isNumberValue(rv reflect.Value) bool {
	if rv.Type() == numberType {
		f, ok := new(big.Float).SetString(rv.String())
		return ok && !f.IsInf()
	}
	return isNumber(rv.Kind())
}

// elemsAre reports whether rv is a slice whose elements all satisfy pred. Elements
// held in interfaces, as decoded from JSON or YAML, are inspected individually.
func elemsAre(rv reflect.Value, pred func(reflect.Value) bool) bool {
	if rv.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		e := rv.Index(i)
		if e.Kind() == reflect.Interface {
			e = e.Elem()
		}
		if !e.IsValid() || !pred(e) {
			return false
		}
	}
	return true
}
