package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/queryir"
	"github.com/roach88/relsync/internal/testutil"
)

func TestNew_ShopDefaults(t *testing.T) {
	g := testutil.ShopGraph(t)

	order, err := g.Model("Order")
	require.NoError(t, err)
	assert.Equal(t, "orders", order.Table())
	assert.Equal(t, []string{"id"}, order.PrimaryKeys())

	customer, ok := order.Relation("customer")
	require.True(t, ok)
	assert.Equal(t, ir.RelationMaster, customer.Type)
	assert.Equal(t, "customerId", customer.SourceKey)
	assert.Equal(t, "id", customer.TargetKey)
	assert.Equal(t, "Order", customer.Holder())
	assert.Equal(t, "Customer", customer.Referenced())
	assert.False(t, customer.Many())

	items, ok := order.Relation("items")
	require.True(t, ok)
	assert.Equal(t, "id", items.SourceKey)
	assert.Equal(t, "orderId", items.TargetKey)
	assert.Equal(t, "OrderItem", items.Holder())
	assert.True(t, items.Many())

	tags, ok := order.Relation("tags")
	require.True(t, ok)
	assert.Equal(t, "orderId", tags.ForeignKey)
	assert.Equal(t, "tagId", tags.OtherKey)
	assert.Equal(t, "id", tags.SourceKey)
	assert.Equal(t, "id", tags.TargetKey)
	assert.Equal(t, "OrderTag", tags.Holder())

	assert.Equal(t, map[string]string{"customer": "Customer", "items": "OrderItem", "tags": "Tag"}, order.AliasModelMap())
	assert.Equal(t, map[string]string{"customer": "customerId", "items": "orderId", "tags": "orderId"}, order.AliasKeyMap())
}

func TestNew_RelationDefaults(t *testing.T) {
	g := testutil.ShopGraph(t)

	cust, err := g.Model("Customer")
	require.NoError(t, err)
	orders, ok := cust.Relation("orders")
	require.True(t, ok)
	assert.Equal(t, "customerId", orders.ForeignKey)

	profile, ok := cust.Relation("profile")
	require.True(t, ok)
	assert.Equal(t, "customerId", profile.TargetKey)
	assert.False(t, profile.Many())

	cat, err := g.Model("Category")
	require.NoError(t, err)
	children, ok := cat.Relation("children")
	require.True(t, ok, "RECURSIVE alias defaults to children")
	assert.Equal(t, "Category", children.Target)
	assert.Equal(t, "parentId", children.ForeignKey)
	assert.Equal(t, "categories", cat.Table())

	person, err := g.Model("Person")
	require.NoError(t, err)
	party, ok := person.Relation("party")
	require.True(t, ok)
	assert.Equal(t, "partyId", party.SourceKey)
	assert.Equal(t, "Person", party.Holder())

	item, err := g.Model("OrderItem")
	require.NoError(t, err)
	assert.Equal(t, "order_items", item.Table())
}

func TestDescriptor_DerivedLists(t *testing.T) {
	g := testutil.ShopGraph(t)
	order, err := g.Model("Order")
	require.NoError(t, err)

	assert.Equal(t, []string{"customerId", "note", "status", "total", "createdAt"}, order.InsertableAttributes())
	assert.Equal(t, []string{"customerId", "note", "status", "total"}, order.MutableAttributes())
	assert.Equal(t, &ir.Order{Field: "id", Ordering: ir.OrderAsc}, order.DefaultOrder())

	cat, err := g.Model("Category")
	require.NoError(t, err)
	assert.Equal(t, &ir.Order{Field: "name", Ordering: ir.OrderAsc}, cat.DefaultOrder())

	tag, err := g.Model("Tag")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "label"}, tag.InsertableAttributes(), "generated keys are insertable")
}

func TestDescriptor_AllowedAttributes(t *testing.T) {
	g := testutil.ShopGraph(t)
	cust, err := g.Model("Customer")
	require.NoError(t, err)

	tests := []struct {
		scope   string
		want    []string
		wantErr ir.ConfigErrorCode
	}{
		{scope: "", want: []string{"id", "name", "email", "vip"}},
		{scope: graph.DefaultScope, want: []string{"id", "name", "email", "vip"}},
		{scope: "public", want: []string{"id", "name"}},
		{scope: "secret", wantErr: ir.ErrCodeUnknownScope},
	}

	for _, tt := range tests {
		t.Run(tt.scope, func(t *testing.T) {
			got, err := cust.AllowedAttributes(tt.scope)
			if tt.wantErr != "" {
				code, ok := ir.ConfigErrorCodeOf(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantErr, code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescriptor_SanitizeAttributes(t *testing.T) {
	g := testutil.ShopGraph(t)
	cust, err := g.Model("Customer")
	require.NoError(t, err)

	tests := []struct {
		name      string
		requested []string
		want      []string
	}{
		{"nil means all", nil, []string{"id", "name", "email", "vip"}},
		{"empty stays empty", []string{}, []string{}},
		{"drops unknown", []string{"name", "password"}, []string{"name"}},
		{"dedupes in order", []string{"email", "id", "email"}, []string{"email", "id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := cust.SanitizeAttributes(tt.requested)
			assert.Equal(t, tt.want, once)

			twice := cust.SanitizeAttributes(once)
			assert.Equal(t, once, twice, "sanitize is idempotent")

			for _, a := range once {
				assert.True(t, cust.HasAttribute(a))
			}
		})
	}

	scoped, err := cust.SanitizeScoped("public", []string{"email", "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, scoped)

	_, err = cust.SanitizeScoped("nope", nil)
	assert.True(t, ir.IsConfigError(err))
}

func TestGraph_ModelLookup(t *testing.T) {
	g := testutil.ShopGraph(t)

	_, err := g.Model("Invoice")
	code, ok := ir.ConfigErrorCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ir.ErrCodeUnknownModel, code)

	names := g.Names()
	assert.Equal(t, "Customer", names[0])
	assert.Len(t, g.Models(), len(names))
}

func TestWithFilter(t *testing.T) {
	fn := func(ctx context.Context, value any) (queryir.Predicate, error) {
		return queryir.Equals{Field: queryir.F("vip"), Value: true}, nil
	}
	g := testutil.ShopGraph(t, graph.WithFilter("Customer", "important", fn))

	cust, err := g.Model("Customer")
	require.NoError(t, err)
	got, ok := cust.FilterBuilder("important")
	require.True(t, ok)
	pred, err := got(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, queryir.Equals{Field: queryir.F("vip"), Value: true}, pred)

	_, ok = cust.FilterBuilder("name")
	assert.False(t, ok)
}

func model(name string, rels ...ir.Relation) ir.ModelSpec {
	return ir.ModelSpec{
		Name: name,
		Attributes: []ir.Attribute{
			{Name: "id", Type: ir.TypeInt, Primary: true, AutoIncrement: true},
			{Name: "parentId", Type: ir.TypeInt},
			{Name: "aId", Type: ir.TypeInt},
			{Name: "bId", Type: ir.TypeInt},
		},
		Relations: rels,
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name     string
		specs    []ir.ModelSpec
		opts     []graph.Option
		wantCode ir.ConfigErrorCode
		wantMsg  string
	}{
		{
			name:     "empty name",
			specs:    []ir.ModelSpec{model("")},
			wantCode: ir.ErrCodeInvalidModel,
		},
		{
			name:     "duplicate model",
			specs:    []ir.ModelSpec{model("A"), model("A")},
			wantCode: ir.ErrCodeDuplicate,
		},
		{
			name:     "no attributes",
			specs:    []ir.ModelSpec{{Name: "A"}},
			wantCode: ir.ErrCodeInvalidModel,
			wantMsg:  "no attributes",
		},
		{
			name:     "unknown scope attribute",
			specs:    []ir.ModelSpec{{Name: "A", Attributes: []ir.Attribute{{Name: "id", Type: ir.TypeInt}}, Scopes: map[string][]string{"s": {"nope"}}}},
			wantCode: ir.ErrCodeInvalidModel,
			wantMsg:  "scope",
		},
		{
			name:     "unknown target",
			specs:    []ir.ModelSpec{model("A", ir.Relation{Type: ir.RelationMaster, Target: "Z"})},
			wantCode: ir.ErrCodeInvalidRelation,
			wantMsg:  "unknown target",
		},
		{
			name:     "invalid type",
			specs:    []ir.ModelSpec{model("A", ir.Relation{Type: "SIBLING", Target: "A"})},
			wantCode: ir.ErrCodeInvalidRelation,
			wantMsg:  "invalid relation type",
		},
		{
			name:     "invalid cascade",
			specs:    []ir.ModelSpec{model("A", ir.Relation{Type: ir.RelationMaster, Target: "A", Alias: "self", ForeignKey: "parentId", OnDelete: "EXPLODE"})},
			wantCode: ir.ErrCodeInvalidRelation,
			wantMsg:  "onDelete",
		},
		{
			name:     "many to many without through",
			specs:    []ir.ModelSpec{model("A", ir.Relation{Type: ir.RelationManyToMany, Target: "B"}), model("B")},
			wantCode: ir.ErrCodeInvalidRelation,
			wantMsg:  "through",
		},
		{
			name:     "virtual many to many without through",
			specs:    []ir.ModelSpec{model("A", ir.Relation{Type: ir.RelationManyToMany, Target: "B", Virtual: true}), model("B")},
			wantCode: ir.ErrCodeInvalidRelation,
			wantMsg:  "through",
		},
		{
			name:     "recursive to another model",
			specs:    []ir.ModelSpec{model("A", ir.Relation{Type: ir.RelationRecursive, Target: "B"}), model("B")},
			wantCode: ir.ErrCodeInvalidRelation,
			wantMsg:  "RECURSIVE",
		},
		{
			name: "duplicate alias",
			specs: []ir.ModelSpec{model("A",
				ir.Relation{Type: ir.RelationMaster, Target: "B", Alias: "b", ForeignKey: "bId"},
				ir.Relation{Type: ir.RelationMaster, Target: "B", Alias: "b", ForeignKey: "bId"},
			), model("B")},
			wantCode: ir.ErrCodeInvalidRelation,
			wantMsg:  "duplicate alias",
		},
		{
			name:     "alias collides with attribute",
			specs:    []ir.ModelSpec{model("A", ir.Relation{Type: ir.RelationMaster, Target: "B", Alias: "bId", ForeignKey: "bId"}), model("B")},
			wantCode: ir.ErrCodeInvalidRelation,
			wantMsg:  "collides",
		},
		{
			name:     "missing foreign key attribute",
			specs:    []ir.ModelSpec{model("A", ir.Relation{Type: ir.RelationMaster, Target: "C"}), model("C")},
			wantCode: ir.ErrCodeInvalidRelation,
			wantMsg:  "foreign key \"cId\"",
		},
		{
			name: "referenced model without single key",
			specs: []ir.ModelSpec{
				model("A", ir.Relation{Type: ir.RelationMaster, Target: "B"}),
				{Name: "B", Attributes: []ir.Attribute{{Name: "x", Type: ir.TypeInt}}},
			},
			wantCode: ir.ErrCodeInvalidRelation,
			wantMsg:  "exactly one primary key",
		},
		{
			name:     "filter on unknown model",
			specs:    []ir.ModelSpec{model("A")},
			opts:     []graph.Option{graph.WithFilter("Z", "f", func(context.Context, any) (queryir.Predicate, error) { return nil, nil })},
			wantCode: ir.ErrCodeUnknownModel,
		},
		{
			name:     "nil filter",
			specs:    []ir.ModelSpec{model("A")},
			opts:     []graph.Option{graph.WithFilter("A", "f", nil)},
			wantCode: ir.ErrCodeInvalidModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := graph.New(tt.specs, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, g)

			code, ok := ir.ConfigErrorCodeOf(err)
			require.True(t, ok, "error %v is not a ConfigError", err)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestNew_VirtualRelationSkipsTarget(t *testing.T) {
	g, err := graph.New([]ir.ModelSpec{model("A", ir.Relation{Type: ir.RelationDetail, Target: "Remote", Alias: "remote", Virtual: true})})
	require.NoError(t, err)

	a, err := g.Model("A")
	require.NoError(t, err)
	rel, ok := a.Relation("remote")
	require.True(t, ok)
	assert.True(t, rel.Virtual)
	assert.Empty(t, rel.ForeignKey)
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "order_items", graph.TableName("OrderItem"))
	assert.Equal(t, "orderItems", graph.DefaultAlias("OrderItem", true))
	assert.Equal(t, "customer", graph.DefaultAlias("Customer", false))
	assert.Equal(t, "orderItemId", graph.DefaultForeignKey("OrderItem"))
}
