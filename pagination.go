package dynacrud

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func init() {
	// Register DynamoDB types with gob
	gob.Register(map[string]types.AttributeValue{})
	gob.Register(&types.AttributeValueMemberS{})
	gob.Register(&types.AttributeValueMemberN{})
	gob.Register(&types.AttributeValueMemberB{})
	gob.Register(&types.AttributeValueMemberSS{})
	gob.Register(&types.AttributeValueMemberNS{})
	gob.Register(&types.AttributeValueMemberBS{})
	gob.Register(&types.AttributeValueMemberM{})
	gob.Register(&types.AttributeValueMemberL{})
	gob.Register(&types.AttributeValueMemberNULL{})
	gob.Register(&types.AttributeValueMemberBOOL{})
}

// PageOptions controls a single page of search results.
type PageOptions struct {
	Limit  int    // Maximum number of items evaluated per request; 0 uses the backend default
	Cursor string // Cursor returned by a previous page; empty starts from the beginning
}

// Page is one page of search results.
type Page struct {
	Records []*Record // Matching records, never nil
	Cursor  string    // Cursor for the next page; empty when there are no more pages
}

// EncodeCursor converts a last evaluated key into an opaque string cursor. An
// empty key yields an empty cursor.
func EncodeCursor(lastKey Item) (string, error) {
	if len(lastKey) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(lastKey); err != nil {
		return "", fmt.Errorf("failed to encode last key: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeCursor converts a cursor produced by EncodeCursor back into a start key.
// An empty cursor yields a nil key.
func DecodeCursor(cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cursor: %w", err)
	}

	var key map[string]types.AttributeValue
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&key); err != nil {
		return nil, fmt.Errorf("failed to decode last key: %w", err)
	}
	return key, nil
}
