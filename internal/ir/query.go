package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Filter maps field names to match values.
//
// Values select the match: nil is IS NULL, a slice is an IN list, a string
// is a case-insensitive substring match, anything else is equality. The keys
// "$and" and "$or" take a list of nested filters.
type Filter map[string]any

// Logical filter keys.
const (
	FilterAnd = "$and"
	FilterOr  = "$or"
)

// Ordering is the sort direction of an Order.
type Ordering string

const (
	OrderNone Ordering = "NONE"
	OrderAsc  Ordering = "ASC"
	OrderDesc Ordering = "DESC"
)

// Valid reports whether o is a known ordering. Empty counts as ASC.
func (o Ordering) Valid() bool {
	return o == "" || o == OrderNone || o == OrderAsc || o == OrderDesc
}

// Order sorts by Field on the model reached by walking Chain (a list of
// relation aliases) from the queried model.
type Order struct {
	Field    string   `json:"field"`
	Ordering Ordering `json:"ordering,omitempty"`
	Chain    []string `json:"chain,omitempty"`
}

// Direction returns the effective direction. Empty means ASC.
func (o Order) Direction() Ordering {
	if o.Ordering == "" {
		return OrderAsc
	}
	return o.Ordering
}

// Pagination skips and limits rows. Take <= 0 means no limit.
type Pagination struct {
	Skip int `json:"skip,omitempty"`
	Take int `json:"take,omitempty"`
}

// Query describes a read against one model.
type Query struct {
	// ByID selects exactly one row by every primary key. Filters, order,
	// pagination and count are ignored when it is set.
	ByID       map[string]any       `json:"byId,omitempty"`
	Filters    Filter               `json:"filters,omitempty"`
	Attributes []string             `json:"attributes,omitempty"`
	Include    map[string]*SubQuery `json:"include,omitempty"`
	Pagination *Pagination          `json:"pagination,omitempty"`
	Order      *Order               `json:"order,omitempty"`
	Count      bool                 `json:"count,omitempty"`
}

// SubQuery scopes the read of one relation alias inside Query.Include.
//
// Required selects inner-join semantics: parent rows without a matching
// related row are excluded.
type SubQuery struct {
	Filters    Filter               `json:"filters,omitempty"`
	Attributes []string             `json:"attributes,omitempty"`
	Include    map[string]*SubQuery `json:"include,omitempty"`
	Required   bool                 `json:"required,omitempty"`
}

// UnmarshalJSON accepts `true` as shorthand for an empty SubQuery.
func (s *SubQuery) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch string(trimmed) {
	case "true", "null":
		*s = SubQuery{}
		return nil
	case "false":
		return fmt.Errorf("include: false is not a valid sub query")
	}

	type plain SubQuery
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return fmt.Errorf("include: %w", err)
	}
	*s = SubQuery(p)
	return nil
}
