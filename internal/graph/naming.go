package graph

import "github.com/go-openapi/inflect"

// TableName returns the default table for a model: "OrderItem" → "order_items".
func TableName(model string) string {
	return inflect.Tableize(model)
}

// DefaultAlias returns the default alias of a relation to target.
// To-many relations use the plural form: "OrderItem" → "orderItems".
func DefaultAlias(target string, many bool) string {
	alias := inflect.CamelizeDownFirst(target)
	if many {
		return inflect.Pluralize(alias)
	}
	return alias
}

// DefaultForeignKey returns the default foreign key referencing model:
// "Customer" → "customerId".
func DefaultForeignKey(model string) string {
	return inflect.CamelizeDownFirst(model) + "Id"
}

const (
	// recursiveAlias is the default alias of a RECURSIVE relation.
	recursiveAlias = "children"

	// recursiveForeignKey is the default foreign key of a RECURSIVE relation.
	recursiveForeignKey = "parentId"
)
