package dynacrud

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Operator is a comparison applied by a Condition.
type Operator string

const (
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "ne"
	OpLessThan     Operator = "lt"
	OpLessEqual    Operator = "le"
	OpGreaterThan  Operator = "gt"
	OpGreaterEqual Operator = "ge"
	OpBeginsWith   Operator = "beginsWith"
	OpContains     Operator = "contains"
	OpBetween      Operator = "between"
	OpIn           Operator = "in"
	OpExists       Operator = "exists"
	OpNotExists    Operator = "notExists"
)

// Condition is the comparison criteria for one field of a Filter.
type Condition struct {
	Op     Operator
	Values []any
}

func Eq(v any) Condition { return Condition{Op: OpEqual, Values: []any{v}} }
func Ne(v any) Condition { return Condition{Op: OpNotEqual, Values: []any{v}} }
func Lt(v any) Condition { return Condition{Op: OpLessThan, Values: []any{v}} }
func Le(v any) Condition { return Condition{Op: OpLessEqual, Values: []any{v}} }
func Gt(v any) Condition { return Condition{Op: OpGreaterThan, Values: []any{v}} }
func Ge(v any) Condition { return Condition{Op: OpGreaterEqual, Values: []any{v}} }

func BeginsWith(prefix string) Condition {
	return Condition{Op: OpBeginsWith, Values: []any{prefix}}
}

func Contains(s string) Condition { return Condition{Op: OpContains, Values: []any{s}} }
func Between(lo, hi any) Condition { return Condition{Op: OpBetween, Values: []any{lo, hi}} }
func In(vs ...any) Condition { return Condition{Op: OpIn, Values: vs} }
func Exists() Condition { return Condition{Op: OpExists} }
func NotExists() Condition { return Condition{Op: OpNotExists} }

// Filter maps field names to the criteria a record must satisfy. All conditions
// must hold for a record to match. An empty Filter matches every record.
type Filter map[string]Condition

// Match returns a Filter requiring each field to equal the given value.
func Match(values map[string]any) Filter {
	f := make(Filter, len(values))
	for k, v := range values {
		f[k] = Eq(v)
	}
	return f
}

func (f Filter) fields() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// condition builds the filter expression for all fields except skip. The boolean
// result is false when no condition remains.
func (f Filter) condition(skip string) (expression.ConditionBuilder, bool, error) {
	var conds []expression.ConditionBuilder
	for _, name := range f.fields() {
		if name == skip {
			continue
		}
		cond, err := f[name].build(name)
		if err != nil {
			return expression.ConditionBuilder{}, false, err
		}
		conds = append(conds, cond)
	}

	switch len(conds) {
	case 0:
		return expression.ConditionBuilder{}, false, nil
	case 1:
		return conds[0], true, nil
	default:
		return expression.And(conds[0], conds[1], conds[2:]...), true, nil
	}
}

func (c Condition) build(field string) (expression.ConditionBuilder, error) {
	name := expression.Name(field)
	arity := func(n int) error {
		if len(c.Values) != n {
			return fmt.Errorf("%s %s expects %d value(s), got %d", field, c.Op, n, len(c.Values))
		}
		return nil
	}

	switch c.Op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual:
		if err := arity(1); err != nil {
			return expression.ConditionBuilder{}, err
		}
		v := expression.Value(c.Values[0])
		switch c.Op {
		case OpEqual:
			return name.Equal(v), nil
		case OpNotEqual:
			return name.NotEqual(v), nil
		case OpLessThan:
			return name.LessThan(v), nil
		case OpLessEqual:
			return name.LessThanEqual(v), nil
		case OpGreaterThan:
			return name.GreaterThan(v), nil
		default:
			return name.GreaterThanEqual(v), nil
		}
	case OpBeginsWith, OpContains:
		if err := arity(1); err != nil {
			return expression.ConditionBuilder{}, err
		}
		s, ok := c.Values[0].(string)
		if !ok {
			return expression.ConditionBuilder{}, fmt.Errorf("%s %s expects a string, got %T", field, c.Op, c.Values[0])
		}
		if c.Op == OpBeginsWith {
			return name.BeginsWith(s), nil
		}
		return name.Contains(s), nil
	case OpBetween:
		if err := arity(2); err != nil {
			return expression.ConditionBuilder{}, err
		}
		return name.Between(expression.Value(c.Values[0]), expression.Value(c.Values[1])), nil
	case OpIn:
		if len(c.Values) == 0 {
			return expression.ConditionBuilder{}, fmt.Errorf("%s %s expects at least one value", field, c.Op)
		}
		rest := make([]expression.OperandBuilder, 0, len(c.Values)-1)
		for _, v := range c.Values[1:] {
			rest = append(rest, expression.Value(v))
		}
		return name.In(expression.Value(c.Values[0]), rest...), nil
	case OpExists:
		return name.AttributeExists(), nil
	case OpNotExists:
		return name.AttributeNotExists(), nil
	default:
		return expression.ConditionBuilder{}, fmt.Errorf("%s: unknown operator %q", field, c.Op)
	}
}

// usesKey reports whether the filter pins the hash key with an equality and so
// can be served by a Query instead of a Scan.
func (m *Model) usesKey(f Filter) bool {
	c, ok := f[m.HashKey]
	return ok && c.Op == OpEqual && len(c.Values) == 1
}

// MarshalScan marshals the filter into a scan request over the model's table.
func (m *Model) MarshalScan(f Filter, limit int, startKey Item) (*dynamodb.ScanInput, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(m.TableName)}

	cond, ok, err := f.condition("")
	if err != nil {
		return nil, err
	}
	if ok {
		expr, err := expression.NewBuilder().WithFilter(cond).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build expression: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}
	if startKey != nil {
		input.ExclusiveStartKey = startKey
	}
	return input, nil
}

// MarshalQuery marshals the filter into a query request keyed on the hash key
// equality. The remaining conditions become the filter expression.
func (m *Model) MarshalQuery(f Filter, limit int, startKey Item) (*dynamodb.QueryInput, error) {
	if !m.usesKey(f) {
		return nil, fmt.Errorf("query requires an equality condition on %s", m.HashKey)
	}

	keyCond := expression.Key(m.HashKey).Equal(expression.Value(f[m.HashKey].Values[0]))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)

	cond, ok, err := f.condition(m.HashKey)
	if err != nil {
		return nil, err
	}
	if ok {
		builder = builder.WithFilter(cond)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(m.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if ok {
		input.FilterExpression = expr.Filter()
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}
	if startKey != nil {
		input.ExclusiveStartKey = startKey
	}
	return input, nil
}
