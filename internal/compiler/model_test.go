package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/ir"
)

func TestCompileModelBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		model: Order: {
			table: "orders"
			attributes: {
				id:         {type: "int", primary: true, autoIncrement: true}
				customerId: {type: "int", required: true}
				note:       {type: "string", validate: "max=140"}
				status:     {type: "string", default: "open"}
				createdAt:  {type: "datetime", mutable: false}
				total:      "float"
			}
			relations: {
				customer: {type: "MASTER", target: "Customer", foreignKey: "customerId", onDelete: "CASCADE"}
				items:    {type: "DETAIL", target: "OrderItem", scope: {archived: false}}
			}
			indexes: [{name: "orders_note", fields: ["note", "customerId"], unique: true}]
			scopes: public: ["id", "note"]
			order: {field: "createdAt", ordering: "DESC"}
		}
	`)
	require.NoError(t, v.Err())

	spec, err := CompileModel(v.LookupPath(cue.ParsePath("model.Order")))
	require.NoError(t, err)

	assert.Equal(t, "Order", spec.Name)
	assert.Equal(t, "orders", spec.Table)

	require.Len(t, spec.Attributes, 6)
	names := make([]string, len(spec.Attributes))
	for i, a := range spec.Attributes {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"id", "customerId", "note", "status", "createdAt", "total"}, names)

	id := spec.Attributes[0]
	assert.True(t, id.Primary)
	assert.True(t, id.AutoIncrement)
	assert.Equal(t, ir.TypeInt, id.Type)

	assert.True(t, spec.Attributes[1].Required)
	assert.Equal(t, "max=140", spec.Attributes[2].Validate)
	assert.Equal(t, "open", spec.Attributes[3].DefaultValue)
	assert.True(t, spec.Attributes[4].Immutable)
	assert.Equal(t, ir.TypeFloat, spec.Attributes[5].Type)

	require.Len(t, spec.Relations, 2)
	customer := spec.Relations[0]
	assert.Equal(t, ir.Relation{
		Type:       ir.RelationMaster,
		Source:     "Order",
		Target:     "Customer",
		Alias:      "customer",
		ForeignKey: "customerId",
		OnDelete:   ir.ActionCascade,
	}, customer)
	assert.Equal(t, ir.Filter{"archived": false}, spec.Relations[1].Scope)

	assert.Equal(t, []ir.Index{{Name: "orders_note", Fields: []string{"note", "customerId"}, Unique: true}}, spec.Indexes)
	assert.Equal(t, map[string][]string{"public": {"id", "note"}}, spec.Scopes)
	assert.Equal(t, &ir.Order{Field: "createdAt", Ordering: ir.OrderDesc}, spec.Order)
}

func TestCompileModelErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "no attributes",
			src:   `model: Empty: {table: "empty"}`,
			field: "attributes",
		},
		{
			name:  "attribute without type",
			src:   `model: Bad: attributes: id: {primary: true}`,
			field: "attributes.id.type",
		},
		{
			name:  "relation without type",
			src:   `model: Bad: {attributes: id: "int", relations: owner: {target: "User"}}`,
			field: "relations.owner.type",
		},
		{
			name:  "non-bool flag",
			src:   `model: Bad: attributes: id: {type: "int", primary: "yes"}`,
			field: "primary",
		},
		{
			name:  "empty index",
			src:   `model: Bad: {attributes: id: "int", indexes: [{name: "x", fields: []}]}`,
			field: "indexes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := cuecontext.New()
			v := ctx.CompileString(tt.src)
			require.NoError(t, v.Err())

			models := v.LookupPath(cue.ParsePath("model"))
			iter, err := models.Fields()
			require.NoError(t, err)
			require.True(t, iter.Next())

			_, err = CompileModel(iter.Value())
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.field, compileErr.Field)
		})
	}
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "attributes", Message: "at least one attribute is required"}
	assert.Equal(t, "attributes: at least one attribute is required", err.Error())
}
