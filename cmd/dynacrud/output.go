package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/nisimpson/dynacrud"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// record returns the attributes of rec ready for JSON output. Numbers are
// written verbatim instead of as quoted strings.
func record(rec *dynacrud.Record) dynacrud.Attributes {
	return jsonValue(rec.Attributes()).(dynacrud.Attributes)
}

func records(recs []*dynacrud.Record) []dynacrud.Attributes {
	out := make([]dynacrud.Attributes, 0, len(recs))
	for _, rec := range recs {
		out = append(out, record(rec))
	}
	return out
}

func jsonValue(v any) any {
	switch v := v.(type) {
	case attributevalue.Number:
		return json.Number(v)
	case []attributevalue.Number:
		out := make([]json.Number, len(v))
		for i, n := range v {
			out[i] = json.Number(n)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = jsonValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = jsonValue(e)
		}
		return out
	}
	return v
}
