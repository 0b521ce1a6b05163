package main

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/nisimpson/dynacrud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(t *testing.T) *dynacrud.Model {
	t.Helper()
	m, err := dynacrud.NewModel("cities", "cities", dynacrud.EntityDescriptor{
		Fields: map[string]dynacrud.Field{
			"code":    {Type: dynacrud.TypeNumber, HashKey: true},
			"name":    {Type: dynacrud.TypeString},
			"capital": {Type: dynacrud.TypeBoolean},
		},
	})
	require.NoError(t, err)
	return m
}

func TestParseWhere(t *testing.T) {
	m := testModel(t)

	keys, values, err := parseWhere(m, []string{"name=Ottawa", "capital=true", "code=1", "region=east"})
	require.NoError(t, err)
	assert.Equal(t, []string{"capital", "code", "name", "region"}, keys)
	assert.Equal(t, []any{true, attributevalue.Number("1"), "Ottawa", "east"}, values)

	_, _, err = parseWhere(m, []string{"name"})
	assert.ErrorContains(t, err, "expected key=value")

	_, _, err = parseWhere(m, []string{"capital=maybe"})
	assert.ErrorContains(t, err, "not a boolean")

	_, values, err = parseWhere(m, []string{"code=9007199254740993"})
	require.NoError(t, err)
	assert.Equal(t, []any{attributevalue.Number("9007199254740993")}, values)

	_, _, err = parseWhere(m, []string{"code=1e"})
	assert.ErrorContains(t, err, "not a number")
}

func TestParseData(t *testing.T) {
	data, err := parseData(`{"name": "Ottawa", "tags": ["capital"], "meta": {"zone": "EST"}}`)
	require.NoError(t, err)
	assert.Equal(t, "Ottawa", data["name"])
	assert.Equal(t, []any{"capital"}, data["tags"])
	assert.Equal(t, map[string]any{"zone": "EST"}, data["meta"])

	_, err = parseData("")
	assert.Error(t, err)
	_, err = parseData("{not json")
	assert.Error(t, err)
}
