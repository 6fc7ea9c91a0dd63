package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryUnmarshalWireShape(t *testing.T) {
	raw := `{
		"filters": {"customer": {"name": "Jim"}, "status": ["open", "paid"]},
		"attributes": ["id", "note"],
		"include": {"customer": true, "items": {"required": true, "attributes": ["sku"]}},
		"pagination": {"skip": 10, "take": 5},
		"order": {"field": "name", "ordering": "DESC", "chain": ["customer"]},
		"count": true
	}`

	var q Query
	require.NoError(t, json.Unmarshal([]byte(raw), &q))

	assert.Equal(t, []string{"id", "note"}, q.Attributes)
	require.Contains(t, q.Include, "customer")
	assert.Equal(t, SubQuery{}, *q.Include["customer"])
	assert.True(t, q.Include["items"].Required)
	assert.Equal(t, []string{"sku"}, q.Include["items"].Attributes)
	assert.Equal(t, &Pagination{Skip: 10, Take: 5}, q.Pagination)
	assert.Equal(t, OrderDesc, q.Order.Direction())
	assert.Equal(t, []string{"customer"}, q.Order.Chain)
	assert.True(t, q.Count)
	assert.Equal(t, map[string]any{"name": "Jim"}, q.Filters["customer"])
}

func TestSubQueryRejectsFalse(t *testing.T) {
	var q Query
	err := json.Unmarshal([]byte(`{"include": {"customer": false}}`), &q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include")
}

func TestOrderDirectionDefault(t *testing.T) {
	assert.Equal(t, OrderAsc, Order{Field: "id"}.Direction())
	assert.True(t, Ordering("").Valid())
	assert.False(t, Ordering("SIDEWAYS").Valid())
}

func TestMutateRequestWireShape(t *testing.T) {
	raw := `{"type":"mutate","action":"update","model":"Order","requestId":"r1","data":{"id":1,"note":"x"},"attributes":["note"]}`

	var req MutateRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	assert.Equal(t, Row{"id": float64(1), "note": "x"}, req.Data)
	assert.Equal(t, []string{"note"}, req.Attributes)
	assert.Equal(t, ActionUpdate, req.Action)
	assert.Equal(t, "r1", req.RequestID)
	assert.True(t, req.Action.Valid())
	assert.False(t, MutateAction("upsert").Valid())
}

func TestRowHelpers(t *testing.T) {
	r := Row{"id": 1, "name": "Jim", "note": nil}

	assert.Equal(t, Row{"id": 1, "note": nil}, r.Pick("id", "note", "missing"))

	c := r.Clone()
	c["id"] = 2
	assert.Equal(t, 1, r["id"])
	assert.Equal(t, Row{}, Row(nil).Clone())
}

func TestSyncResultHelpers(t *testing.T) {
	ok := Success(Row{"id": int64(7)})
	assert.True(t, ok.OK())
	assert.NotNil(t, ok.Errors)

	failed := Failure(ValidationError{Key: "NAME_REQUIRED", Field: "name"})
	assert.False(t, failed.OK())
	assert.Nil(t, failed.GeneratedIDs)
}
