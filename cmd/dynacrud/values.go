package main

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/nisimpson/dynacrud"
	"gopkg.in/yaml.v3"
)

// parseValue converts a command line value to the Go type stored by the named
// field. Unknown fields keep the raw string.
func parseValue(m *dynacrud.Model, name, raw string) (any, error) {
	field, ok := m.Field(name)
	if !ok {
		return raw, nil
	}
	switch field.Type {
	case dynacrud.TypeNumber:
		// kept as text so keys beyond float64 precision stay exact
		if f, ok := new(big.Float).SetString(raw); !ok || f.IsInf() {
			return nil, fmt.Errorf("%s: %q is not a number", name, raw)
		}
		return attributevalue.Number(raw), nil
	case dynacrud.TypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", name, raw)
		}
		return b, nil
	}
	return raw, nil
}

// parseWhere splits key=value pairs into field names and typed values, ordered
// by field name.
func parseWhere(m *dynacrud.Model, pairs []string) ([]string, []any, error) {
	sorted := append([]string(nil), pairs...)
	sort.Strings(sorted)

	keys := make([]string, 0, len(sorted))
	values := make([]any, 0, len(sorted))
	for _, pair := range sorted {
		k, raw, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, nil, fmt.Errorf("invalid condition %q, expected key=value", pair)
		}
		v, err := parseValue(m, k, raw)
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, k)
		values = append(values, v)
	}
	return keys, values, nil
}

// parseData decodes a JSON (or YAML) object of record attributes.
func parseData(raw string) (dynacrud.Attributes, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("no data given")
	}
	var data dynacrud.Attributes
	if err := yaml.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("data must be an object")
	}
	return data, nil
}

func lookupModel(table string) (*dynacrud.Model, error) {
	m, ok := service.Model(table)
	if !ok {
		return nil, fmt.Errorf("unknown table %s", table)
	}
	return m, nil
}
