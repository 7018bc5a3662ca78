package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCond_SQL(t *testing.T) {
	clause, args := Eq("visibility", "PUBLIC").SQL(0)
	assert.Equal(t, "(visibility = $1)", clause)
	assert.Equal(t, []interface{}{"PUBLIC"}, args)

	clause, args = IsNull("owner_id").SQL(3)
	assert.Equal(t, "(owner_id IS NULL)", clause)
	assert.Empty(t, args)
}

func TestAnd_SQLPlaceholderNumbering(t *testing.T) {
	expr := And(
		Eq("visibility", "PUBLIC"),
		Or(Gt("level", 3), Eq("owner_id", "abc")),
	)

	clause, args := expr.SQL(0)
	assert.Equal(t, "((visibility = $1) AND ((level > $2) OR (owner_id = $3)))", clause)
	assert.Equal(t, []interface{}{"PUBLIC", 3, "abc"}, args)
}

// An AND-ed constraint must bind to the whole of a caller's disjunction,
// never distribute into it.
func TestAnd_WrapsDisjunction(t *testing.T) {
	base := Or(Eq("kind", "sword"), Eq("kind", "shield"))
	secured := And(base, Eq("visibility", "PUBLIC"))

	clause, _ := secured.SQL(0)
	assert.Equal(t, "(((kind = $1) OR (kind = $2)) AND (visibility = $3))", clause)

	// A private sword matches the base filter but not the secured one.
	row := map[string]interface{}{"kind": "sword", "visibility": "PRIVATE"}
	assert.True(t, base.Match(row))
	assert.False(t, secured.Match(row))
}

func TestAnd_SkipsNil(t *testing.T) {
	expr := And(nil, Eq("visibility", "PUBLIC"))
	clause, args := expr.SQL(0)
	assert.Equal(t, "(visibility = $1)", clause)
	assert.Len(t, args, 1)
}

func TestMatch(t *testing.T) {
	row := map[string]interface{}{
		"visibility": "PUBLIC",
		"owner_id":   nil,
		"level":      5,
	}

	assert.True(t, Eq("visibility", "PUBLIC").Match(row))
	assert.False(t, Eq("visibility", "HIDDEN").Match(row))
	assert.True(t, IsNull("owner_id").Match(row))
	assert.True(t, IsNull("missing_field").Match(row))
	assert.True(t, Gt("level", 3).Match(row))
	assert.False(t, Gt("level", 5).Match(row))
	assert.True(t, Lt("level", 10).Match(row))
	assert.True(t, Or(Eq("visibility", "HIDDEN"), Gt("level", 1)).Match(row))
	assert.False(t, And(Eq("visibility", "PUBLIC"), Gt("level", 9)).Match(row))
}

func TestCursor_RoundTrip(t *testing.T) {
	c := Cursor{LastValue: "Aldric", LastID: "7f3c0a52-0000-0000-0000-000000000001"}

	encoded, err := c.Encode()
	require.NoError(t, err)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, c.LastValue, decoded.LastValue)
	assert.Equal(t, c.LastID, decoded.LastID)
}

func TestDecodeCursor_Malformed(t *testing.T) {
	_, err := DecodeCursor("not base64!!!")
	assert.Error(t, err)

	_, err = DecodeCursor("bm90IGpzb24")
	assert.Error(t, err)
}

// A cursor predicate never matches a row that sorts at or before the cursor
// position, even when sort-key values are duplicated.
func TestCursor_PredicateKeyset(t *testing.T) {
	c := Cursor{LastValue: "Borin", LastID: "id-5"}

	asc := c.Predicate("name", SortAsc)
	assert.True(t, asc.Match(map[string]interface{}{"name": "Cedric", "id": "id-1"}))
	assert.True(t, asc.Match(map[string]interface{}{"name": "Borin", "id": "id-9"}), "tie broken by id")
	assert.False(t, asc.Match(map[string]interface{}{"name": "Borin", "id": "id-5"}), "cursor row itself excluded")
	assert.False(t, asc.Match(map[string]interface{}{"name": "Borin", "id": "id-2"}))
	assert.False(t, asc.Match(map[string]interface{}{"name": "Aldric", "id": "id-9"}))

	desc := c.Predicate("name", SortDesc)
	assert.True(t, desc.Match(map[string]interface{}{"name": "Aldric", "id": "id-9"}))
	assert.True(t, desc.Match(map[string]interface{}{"name": "Borin", "id": "id-2"}))
	assert.False(t, desc.Match(map[string]interface{}{"name": "Cedric", "id": "id-1"}))
}

func TestCursor_PredicateSQL(t *testing.T) {
	c := Cursor{LastValue: 42, LastID: "id-5"}
	clause, args := c.Predicate("level", SortAsc).SQL(0)
	assert.Equal(t, "((level > $1) OR ((level = $2) AND (id > $3)))", clause)
	assert.Equal(t, []interface{}{42, 42, "id-5"}, args)
}
