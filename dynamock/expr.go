package dynamock

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Evaluate reports whether item satisfies the DynamoDB condition expression expr.
// It supports the grammar emitted by the expression builder: comparisons
// (=, <>, <, <=, >, >=), BETWEEN, IN, the functions attribute_exists,
// attribute_not_exists, begins_with and contains, AND, OR, NOT and parentheses.
// Document paths may be dotted (#a.#b) to reach into maps.
func Evaluate(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (bool, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return false, err
	}
	p := &parser{tokens: tokens, names: names, values: values, item: item}
	ok, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.tokens) {
		return false, fmt.Errorf("unexpected token %q in %q", p.tokens[p.pos], expr)
	}
	return ok, nil
}

func tokenize(expr string) ([]string, error) {
	var tokens []string
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '(' || c == ')' || c == ',' || c == '=':
			tokens = append(tokens, string(c))
			i++
		case c == '<' || c == '>':
			if i+1 < len(expr) && (expr[i+1] == '=' || (c == '<' && expr[i+1] == '>')) {
				tokens = append(tokens, expr[i:i+2])
				i += 2
			} else {
				tokens = append(tokens, string(c))
				i++
			}
		case isWordChar(c):
			j := i
			for j < len(expr) && isWordChar(expr[j]) {
				j++
			}
			tokens = append(tokens, expr[i:j])
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q in %q", c, expr)
		}
	}
	return tokens, nil
}

func isWordChar(c byte) bool {
	return c == '#' || c == ':' || c == '_' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

type parser struct {
	tokens []string
	pos    int
	names  map[string]string
	values map[string]types.AttributeValue
	item   map[string]types.AttributeValue
}

func (p *parser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expect(t string) error {
	if got := p.next(); got != t {
		return fmt.Errorf("expected %q, got %q", t, got)
	}
	return nil
}

func (p *parser) parseOr() (bool, error) {
	left, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for strings.EqualFold(p.peek(), "OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		left = left || right
	}
	return left, nil
}

func (p *parser) parseAnd() (bool, error) {
	left, err := p.parseNot()
	if err != nil {
		return false, err
	}
	for strings.EqualFold(p.peek(), "AND") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return false, err
		}
		left = left && right
	}
	return left, nil
}

func (p *parser) parseNot() (bool, error) {
	if strings.EqualFold(p.peek(), "NOT") {
		p.next()
		v, err := p.parseNot()
		return !v, err
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (bool, error) {
	tok := p.peek()
	if tok == "(" {
		p.next()
		v, err := p.parseOr()
		if err != nil {
			return false, err
		}
		return v, p.expect(")")
	}

	switch strings.ToLower(tok) {
	case "attribute_exists", "attribute_not_exists", "begins_with", "contains":
		return p.parseFunction()
	}

	left, leftOK, err := p.parseOperand()
	if err != nil {
		return false, err
	}

	op := p.next()
	switch strings.ToUpper(op) {
	case "=", "<>", "<", "<=", ">", ">=":
		right, rightOK, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		if !leftOK || !rightOK {
			return op == "<>", nil
		}
		return compare(op, left, right), nil
	case "BETWEEN":
		lo, loOK, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		if err := p.expectWord("AND"); err != nil {
			return false, err
		}
		hi, hiOK, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		if !leftOK || !loOK || !hiOK {
			return false, nil
		}
		return compare(">=", left, lo) && compare("<=", left, hi), nil
	case "IN":
		if err := p.expect("("); err != nil {
			return false, err
		}
		found := false
		for {
			v, ok, err := p.parseOperand()
			if err != nil {
				return false, err
			}
			if leftOK && ok && compare("=", left, v) {
				found = true
			}
			if p.peek() == "," {
				p.next()
				continue
			}
			return found, p.expect(")")
		}
	default:
		return false, fmt.Errorf("unsupported operator %q", op)
	}
}

func (p *parser) expectWord(w string) error {
	if got := p.next(); !strings.EqualFold(got, w) {
		return fmt.Errorf("expected %q, got %q", w, got)
	}
	return nil
}

func (p *parser) parseFunction() (bool, error) {
	fn := strings.ToLower(p.next())
	if err := p.expect("("); err != nil {
		return false, err
	}

	var (
		args   []types.AttributeValue
		exists []bool
	)
	for {
		v, ok, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		args = append(args, v)
		exists = append(exists, ok)
		if p.peek() == "," {
			p.next()
			continue
		}
		break
	}
	if err := p.expect(")"); err != nil {
		return false, err
	}

	switch fn {
	case "attribute_exists":
		return exists[0], nil
	case "attribute_not_exists":
		return !exists[0], nil
	}
	if len(args) != 2 {
		return false, fmt.Errorf("%s expects 2 arguments, got %d", fn, len(args))
	}
	if !exists[0] || !exists[1] {
		return false, nil
	}
	if fn == "begins_with" {
		return beginsWith(args[0], args[1]), nil
	}
	return contains(args[0], args[1]), nil
}

// parseOperand resolves a path or value placeholder. The boolean result is false
// when the path does not exist in the item.
func (p *parser) parseOperand() (types.AttributeValue, bool, error) {
	tok := p.next()
	switch {
	case strings.HasPrefix(tok, ":"):
		v, ok := p.values[tok]
		if !ok {
			return nil, false, fmt.Errorf("undefined expression value %s", tok)
		}
		return v, true, nil
	case tok == "":
		return nil, false, fmt.Errorf("unexpected end of expression")
	default:
		return p.resolvePath(tok)
	}
}

func (p *parser) resolvePath(path string) (types.AttributeValue, bool, error) {
	current := p.item
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		name := seg
		if strings.HasPrefix(seg, "#") {
			resolved, ok := p.names[seg]
			if !ok {
				return nil, false, fmt.Errorf("undefined expression name %s", seg)
			}
			name = resolved
		}
		v, ok := current[name]
		if !ok {
			return nil, false, nil
		}
		if i == len(segments)-1 {
			return v, true, nil
		}
		m, ok := v.(*types.AttributeValueMemberM)
		if !ok {
			return nil, false, nil
		}
		current = m.Value
	}
	return nil, false, nil
}

func compare(op string, a, b types.AttributeValue) bool {
	cmp, ordered := order(a, b)
	switch op {
	case "=":
		if ordered {
			return cmp == 0
		}
		return reflect.DeepEqual(a, b)
	case "<>":
		if ordered {
			return cmp != 0
		}
		return !reflect.DeepEqual(a, b)
	}
	if !ordered {
		return false
	}
	switch op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

// order compares scalar values of the same type. The boolean result is false when
// the values are not ordered scalars of the same type.
func order(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if bv, ok := b.(*types.AttributeValueMemberS); ok {
			return strings.Compare(av.Value, bv.Value), true
		}
	case *types.AttributeValueMemberN:
		if bv, ok := b.(*types.AttributeValueMemberN); ok {
			x, okx := new(big.Float).SetString(av.Value)
			y, oky := new(big.Float).SetString(bv.Value)
			if okx && oky {
				return x.Cmp(y), true
			}
		}
	case *types.AttributeValueMemberB:
		if bv, ok := b.(*types.AttributeValueMemberB); ok {
			return bytes.Compare(av.Value, bv.Value), true
		}
	}
	return 0, false
}

func beginsWith(a, prefix types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if pv, ok := prefix.(*types.AttributeValueMemberS); ok {
			return strings.HasPrefix(av.Value, pv.Value)
		}
	case *types.AttributeValueMemberB:
		if pv, ok := prefix.(*types.AttributeValueMemberB); ok {
			return bytes.HasPrefix(av.Value, pv.Value)
		}
	}
	return false
}

func contains(a, operand types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if ov, ok := operand.(*types.AttributeValueMemberS); ok {
			return strings.Contains(av.Value, ov.Value)
		}
	case *types.AttributeValueMemberSS:
		if ov, ok := operand.(*types.AttributeValueMemberS); ok {
			for _, v := range av.Value {
				if v == ov.Value {
					return true
				}
			}
		}
	case *types.AttributeValueMemberNS:
		for _, v := range av.Value {
			if compare("=", &types.AttributeValueMemberN{Value: v}, operand) {
				return true
			}
		}
	case *types.AttributeValueMemberL:
		for _, v := range av.Value {
			if compare("=", v, operand) {
				return true
			}
		}
	}
	return false
}
