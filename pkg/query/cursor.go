package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// SortDirection orders a keyset-paginated fetch.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Cursor marks a position in a keyset-paginated list: the sort-field value
// and row id of the last row the client saw. The id tie-breaker guarantees a
// total order even when the sort field has duplicate values.
type Cursor struct {
	LastValue interface{} `json:"lastValue"`
	LastID    string      `json:"lastId"`
}

// Encode serializes the cursor as base64(JSON).
func (c Cursor) Encode() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// DecodeCursor parses a client-supplied cursor string.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("decoding cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fmt.Errorf("decoding cursor: %w", err)
	}
	return c, nil
}

// Predicate turns the cursor into the keyset condition
//
//	(sortField > lastValue) OR (sortField = lastValue AND id > lastId)
//
// with the comparisons inverted for descending order.
func (c Cursor) Predicate(sortField string, dir SortDirection) Expr {
	cmp := Gt
	if dir == SortDesc {
		cmp = Lt
	}
	return Or(
		cmp(sortField, c.LastValue),
		And(Eq(sortField, c.LastValue), cmp("id", c.LastID)),
	)
}
