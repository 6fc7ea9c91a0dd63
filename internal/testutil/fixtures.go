package testutil

import "github.com/roach88/relsync/internal/ir"

// ShopModels returns the model declarations of the shop fixture schema.
//
// The schema covers every relation type:
//
//	Customer ─DETAIL→ Order ─DETAIL→ OrderItem
//	Customer ─INJECTIVE→ Profile
//	Order ─MASTER→ Customer
//	Order ─MANY_TO_MANY(OrderTag)→ Tag
//	OrderTag ─MASTER→ Tag
//	Category ─RECURSIVE→ Category (children), Category ─MASTER→ Category (parent)
//	Person ─SUPERCLASS→ Party, Party ─SUBCLASS→ Person
//
// Tag keys are generated uuids and Profile keys generated ulids; every other
// model uses an auto-increment integer key.
func ShopModels() []ir.ModelSpec {
	return []ir.ModelSpec{
		{
			Name: "Customer",
			Attributes: []ir.Attribute{
				{Name: "id", Type: ir.TypeInt, Primary: true, AutoIncrement: true},
				{Name: "name", Type: ir.TypeString, Required: true},
				{Name: "email", Type: ir.TypeString, Unique: true, Validate: "omitempty,email"},
				{Name: "vip", Type: ir.TypeBool, DefaultValue: false},
			},
			Relations: []ir.Relation{
				{Type: ir.RelationDetail, Target: "Order", Alias: "orders"},
				{Type: ir.RelationInjective, Target: "Profile", Alias: "profile"},
			},
			Scopes: map[string][]string{"public": {"id", "name"}},
		},
		{
			Name: "Profile",
			Attributes: []ir.Attribute{
				{Name: "id", Type: ir.TypeULID, Primary: true},
				{Name: "customerId", Type: ir.TypeInt, Required: true},
				{Name: "bio", Type: ir.TypeText},
			},
			Relations: []ir.Relation{
				{Type: ir.RelationMaster, Target: "Customer", Alias: "customer", OnDelete: ir.ActionCascade},
			},
		},
		{
			Name: "Order",
			Attributes: []ir.Attribute{
				{Name: "id", Type: ir.TypeInt, Primary: true, AutoIncrement: true},
				{Name: "customerId", Type: ir.TypeInt, Required: true},
				{Name: "note", Type: ir.TypeString, Validate: "max=140"},
				{Name: "status", Type: ir.TypeString, DefaultValue: "open"},
				{Name: "total", Type: ir.TypeFloat},
				{Name: "createdAt", Type: ir.TypeDatetime, Immutable: true, DefaultValue: "now"},
			},
			Relations: []ir.Relation{
				{Type: ir.RelationMaster, Target: "Customer", Alias: "customer", ForeignKey: "customerId", OnDelete: ir.ActionCascade},
				{Type: ir.RelationDetail, Target: "OrderItem", Alias: "items", ForeignKey: "orderId"},
				{Type: ir.RelationManyToMany, Target: "Tag", Alias: "tags", Through: "OrderTag"},
			},
		},
		{
			Name: "OrderItem",
			Attributes: []ir.Attribute{
				{Name: "id", Type: ir.TypeInt, Primary: true, AutoIncrement: true},
				{Name: "orderId", Type: ir.TypeInt, Required: true},
				{Name: "sku", Type: ir.TypeString, Required: true},
				{Name: "quantity", Type: ir.TypeInt, DefaultValue: 1, Validate: "gte=1"},
			},
			Relations: []ir.Relation{
				{Type: ir.RelationMaster, Target: "Order", Alias: "order", OnDelete: ir.ActionCascade},
			},
		},
		{
			Name: "Tag",
			Attributes: []ir.Attribute{
				{Name: "id", Type: ir.TypeUUID, Primary: true},
				{Name: "label", Type: ir.TypeString, Required: true, Unique: true},
			},
		},
		{
			Name: "OrderTag",
			Attributes: []ir.Attribute{
				{Name: "id", Type: ir.TypeInt, Primary: true, AutoIncrement: true},
				{Name: "orderId", Type: ir.TypeInt, Required: true},
				{Name: "tagId", Type: ir.TypeUUID, Required: true},
			},
			Relations: []ir.Relation{
				{Type: ir.RelationMaster, Target: "Order", Alias: "order", OnDelete: ir.ActionCascade},
				{Type: ir.RelationMaster, Target: "Tag", Alias: "tag", OnDelete: ir.ActionCascade},
			},
			Indexes: []ir.Index{{Name: "order_tags_pair", Fields: []string{"orderId", "tagId"}, Unique: true}},
		},
		{
			Name: "Category",
			Table: "categories",
			Attributes: []ir.Attribute{
				{Name: "id", Type: ir.TypeInt, Primary: true, AutoIncrement: true},
				{Name: "parentId", Type: ir.TypeInt},
				{Name: "name", Type: ir.TypeString, Required: true},
			},
			Relations: []ir.Relation{
				{Type: ir.RelationRecursive},
				{Type: ir.RelationMaster, Target: "Category", Alias: "parent", ForeignKey: "parentId", OnDelete: ir.ActionSetNull},
			},
			Order: &ir.Order{Field: "name", Ordering: ir.OrderAsc},
		},
		{
			Name: "Party",
			Attributes: []ir.Attribute{
				{Name: "id", Type: ir.TypeInt, Primary: true, AutoIncrement: true},
				{Name: "kind", Type: ir.TypeString, Required: true},
			},
			Relations: []ir.Relation{
				{Type: ir.RelationSubclass, Target: "Person", Alias: "person", ForeignKey: "partyId"},
			},
		},
		{
			Name: "Person",
			Attributes: []ir.Attribute{
				{Name: "id", Type: ir.TypeInt, Primary: true, AutoIncrement: true},
				{Name: "partyId", Type: ir.TypeInt, Required: true},
				{Name: "firstName", Type: ir.TypeString, Required: true},
			},
			Relations: []ir.Relation{
				{Type: ir.RelationSuperclass, Target: "Party", Alias: "party", OnDelete: ir.ActionCascade},
			},
		},
	}
}
