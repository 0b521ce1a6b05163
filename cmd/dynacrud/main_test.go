package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/nisimpson/dynacrud"
	"github.com/nisimpson/dynacrud/dynamock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command against client and returns its stdout.
func run(t *testing.T, client dynacrud.DynamoDBClient, args ...string) (string, error) {
	t.Helper()
	searchLimit, searchCursor, writeData = 0, "", ""
	serviceOptions = []dynacrud.Option{dynacrud.WithClient(client)}
	t.Cleanup(func() { serviceOptions = nil })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", "../../testdata/countries.yaml", "--log-level", "error"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestTables(t *testing.T) {
	client := dynamock.NewMemoryClient()

	out, err := run(t, client, "tables")
	require.NoError(t, err)

	tables := decode[[]struct {
		Name      string   `json:"name"`
		TableName string   `json:"tableName"`
		HashKey   string   `json:"hashKey"`
		Fields    []string `json:"fields"`
	}](t, out)
	require.Len(t, tables, 2)
	assert.Equal(t, "cities", tables[0].Name)
	assert.Equal(t, "dev-cities", tables[0].TableName)
	assert.Equal(t, "code", tables[0].HashKey)
	assert.Equal(t, []string{"code", "country", "name", "population"}, tables[0].Fields)
	assert.Equal(t, "dev-countries", tables[1].TableName)
	assert.Equal(t, 2, client.Calls("CreateTable"))
}

func TestRecordLifecycle(t *testing.T) {
	client := dynamock.NewMemoryClient()

	out, err := run(t, client, "create", "cities", "--data", `{"code": 7, "name": "Toronto", "country": "can"}`)
	require.NoError(t, err)
	created := decode[map[string]any](t, out)
	assert.Equal(t, "Toronto", created["name"])
	assert.EqualValues(t, 0, created["population"])

	out, err = run(t, client, "get", "cities", "7")
	require.NoError(t, err)
	assert.Equal(t, "Toronto", decode[map[string]any](t, out)["name"])

	out, err = run(t, client, "update", "cities", "7", "--data", `{"population": 2794356}`)
	require.NoError(t, err)
	updated := decode[map[string]any](t, out)
	assert.EqualValues(t, 2794356, updated["population"])
	assert.Equal(t, "Toronto", updated["name"])

	out, err = run(t, client, "search", "cities")
	require.NoError(t, err)
	assert.Len(t, decode[[]map[string]any](t, out), 1)

	out, err = run(t, client, "delete", "cities", "7")
	require.NoError(t, err)
	assert.Equal(t, "Toronto", decode[map[string]any](t, out)["name"])

	_, err = run(t, client, "get", "cities", "7")
	assert.True(t, dynacrud.IsNotFound(err))
}

func TestLargeNumberCode(t *testing.T) {
	client := dynamock.NewMemoryClient()

	_, err := run(t, client, "create", "cities", "--data", `{"code": 9007199254740993, "name": "Big", "country": "can"}`)
	require.NoError(t, err)

	out, err := run(t, client, "get", "cities", "9007199254740993")
	require.NoError(t, err)
	assert.Contains(t, out, `"code": 9007199254740993`)

	_, err = run(t, client, "update", "cities", "9007199254740993", "--data", `{"name": "Renamed"}`)
	require.NoError(t, err)
	assert.Len(t, client.Items("dev-cities"), 1)

	_, err = run(t, client, "delete", "cities", "9007199254740993")
	require.NoError(t, err)
	assert.Empty(t, client.Items("dev-cities"))
}

func TestSearchPage(t *testing.T) {
	client := dynamock.NewMemoryClient()
	for _, data := range []string{
		`{"code": 1, "name": "Ottawa", "country": "can"}`,
		`{"code": 2, "name": "Toronto", "country": "can"}`,
		`{"code": 3, "name": "Montreal", "country": "can"}`,
	} {
		_, err := run(t, client, "create", "cities", "--data", data)
		require.NoError(t, err)
	}

	out, err := run(t, client, "search", "cities", "--limit", "2")
	require.NoError(t, err)

	page := decode[struct {
		Records []map[string]any `json:"records"`
		Cursor  string           `json:"cursor"`
	}](t, out)
	assert.Len(t, page.Records, 2)
	assert.NotEmpty(t, page.Cursor)
}

func TestCheck(t *testing.T) {
	client := dynamock.NewMemoryClient()
	_, err := run(t, client, "create", "countries", "--data", `{"name": "Canada", "countryCode": "CAN"}`)
	require.NoError(t, err)

	out, err := run(t, client, "check", "countries", "--where", "countryCode=CAN")
	assert.True(t, dynacrud.IsConflict(err))
	assert.True(t, decode[map[string]bool](t, out)["duplicate"])
}

func TestCommandErrors(t *testing.T) {
	client := dynamock.NewMemoryClient()

	_, err := run(t, client, "get", "planets", "earth")
	assert.ErrorContains(t, err, "unknown table planets")

	_, err = run(t, client, "get", "cities", "seven")
	assert.ErrorContains(t, err, "not a number")

	_, err = run(t, client, "create", "cities", "--data", `[1, 2]`)
	assert.Error(t, err)
}
