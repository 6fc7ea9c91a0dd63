package graph

import (
	"maps"
	"slices"

	"github.com/roach88/relsync/internal/ir"
)

// DefaultScope is the scope name that exposes every attribute unless the
// model declares it explicitly.
const DefaultScope = "default"

// Descriptor is the read-only view of one model in the graph.
type Descriptor struct {
	spec        ir.ModelSpec
	name        string
	table       string
	attrIndex   map[string]int
	primaryKeys []string
	allowed     []string
	insertable  []string
	mutable     []string
	scopes      map[string][]string
	order       *ir.Order
	relations   []Relation
	relIndex    map[string]int
	filters     map[string]FilterFunc
}

func newDescriptor(spec ir.ModelSpec) (*Descriptor, error) {
	d := &Descriptor{
		spec:      spec,
		name:      spec.Name,
		table:     spec.Table,
		attrIndex: make(map[string]int, len(spec.Attributes)),
		scopes:    make(map[string][]string, len(spec.Scopes)),
		relIndex:  make(map[string]int, len(spec.Relations)),
		filters:   make(map[string]FilterFunc),
	}
	if d.table == "" {
		d.table = TableName(spec.Name)
	}

	if len(spec.Attributes) == 0 {
		return nil, ir.NewConfigError(ir.ErrCodeInvalidModel, spec.Name, "model has no attributes")
	}

	for i, attr := range spec.Attributes {
		if attr.Name == "" {
			return nil, ir.NewConfigError(ir.ErrCodeInvalidModel, spec.Name, "attribute %d has no name", i)
		}
		if _, dup := d.attrIndex[attr.Name]; dup {
			return nil, ir.NewConfigError(ir.ErrCodeInvalidModel, spec.Name, "duplicate attribute %q", attr.Name)
		}
		if !attr.Type.Valid() {
			return nil, ir.NewConfigError(ir.ErrCodeInvalidModel, spec.Name, "attribute %q has invalid type %q", attr.Name, attr.Type)
		}
		d.attrIndex[attr.Name] = i

		d.allowed = append(d.allowed, attr.Name)
		if attr.Primary {
			d.primaryKeys = append(d.primaryKeys, attr.Name)
		}
		if attr.IsInsertable() {
			d.insertable = append(d.insertable, attr.Name)
		}
		if attr.IsMutable() {
			d.mutable = append(d.mutable, attr.Name)
		}
	}

	for name, fields := range spec.Scopes {
		for _, f := range fields {
			if _, ok := d.attrIndex[f]; !ok {
				return nil, ir.NewConfigError(ir.ErrCodeInvalidModel, spec.Name, "scope %q references unknown attribute %q", name, f)
			}
		}
		d.scopes[name] = slices.Clone(fields)
	}

	switch {
	case spec.Order != nil:
		if _, ok := d.attrIndex[spec.Order.Field]; !ok {
			return nil, ir.NewConfigError(ir.ErrCodeInvalidModel, spec.Name, "default order references unknown attribute %q", spec.Order.Field)
		}
		if !spec.Order.Ordering.Valid() {
			return nil, ir.NewConfigError(ir.ErrCodeInvalidModel, spec.Name, "default order has invalid ordering %q", spec.Order.Ordering)
		}
		order := *spec.Order
		order.Chain = nil
		d.order = &order
	case len(d.primaryKeys) > 0:
		d.order = &ir.Order{Field: d.primaryKeys[0], Ordering: ir.OrderAsc}
	}

	return d, nil
}

// Name returns the model name.
func (d *Descriptor) Name() string { return d.name }

// Table returns the storage table name.
func (d *Descriptor) Table() string { return d.table }

// Spec returns the declaration the descriptor was built from.
func (d *Descriptor) Spec() ir.ModelSpec { return d.spec }

// Attributes returns every attribute in declaration order.
func (d *Descriptor) Attributes() []ir.Attribute {
	return slices.Clone(d.spec.Attributes)
}

// Attribute returns the named attribute.
func (d *Descriptor) Attribute(name string) (ir.Attribute, bool) {
	i, ok := d.attrIndex[name]
	if !ok {
		return ir.Attribute{}, false
	}
	return d.spec.Attributes[i], true
}

// HasAttribute reports whether name is an attribute of the model.
func (d *Descriptor) HasAttribute(name string) bool {
	_, ok := d.attrIndex[name]
	return ok
}

// PrimaryKeys returns the primary key attributes in declaration order.
func (d *Descriptor) PrimaryKeys() []string {
	return slices.Clone(d.primaryKeys)
}

// Indexes returns the declared multi-column indexes.
func (d *Descriptor) Indexes() []ir.Index {
	return slices.Clone(d.spec.Indexes)
}

// Relations returns every resolved relation in declaration order.
func (d *Descriptor) Relations() []Relation {
	return slices.Clone(d.relations)
}

// Relation returns the relation with the given alias.
func (d *Descriptor) Relation(alias string) (Relation, bool) {
	i, ok := d.relIndex[alias]
	if !ok {
		return Relation{}, false
	}
	return d.relations[i], true
}

// AliasModelMap maps each relation alias to its target model.
func (d *Descriptor) AliasModelMap() map[string]string {
	m := make(map[string]string, len(d.relations))
	for _, r := range d.relations {
		m[r.Alias] = r.Target
	}
	return m
}

// AliasKeyMap maps each relation alias to its foreign key.
func (d *Descriptor) AliasKeyMap() map[string]string {
	m := make(map[string]string, len(d.relations))
	for _, r := range d.relations {
		m[r.Alias] = r.ForeignKey
	}
	return m
}

// AllowedAttributes returns the attributes readable under scope. The empty
// scope and DefaultScope expose every attribute unless the model declares
// a scope with that name. An unknown scope is a configuration error.
func (d *Descriptor) AllowedAttributes(scope string) ([]string, error) {
	if fields, ok := d.scopes[scope]; ok {
		return slices.Clone(fields), nil
	}
	if scope == "" || scope == DefaultScope {
		return slices.Clone(d.allowed), nil
	}
	return nil, ir.NewConfigError(ir.ErrCodeUnknownScope, d.name, "unknown scope %q", scope)
}

// Scopes returns the declared scopes.
func (d *Descriptor) Scopes() map[string][]string {
	return maps.Clone(d.scopes)
}

// InsertableAttributes returns attributes that may be written on insert.
func (d *Descriptor) InsertableAttributes() []string {
	return slices.Clone(d.insertable)
}

// MutableAttributes returns attributes that may be written on update.
func (d *Descriptor) MutableAttributes() []string {
	return slices.Clone(d.mutable)
}

// DefaultOrder returns the declared order, or the first primary key
// ascending, or nil for a model without primary keys.
func (d *Descriptor) DefaultOrder() *ir.Order {
	if d.order == nil {
		return nil
	}
	o := *d.order
	return &o
}

// SanitizeAttributes restricts requested to the model's attributes.
//
// Disallowed names are dropped silently. A nil request means every
// attribute. Order of first occurrence is kept and duplicates removed, so
// the operation is idempotent and its output is a subset of the allow-list.
func (d *Descriptor) SanitizeAttributes(requested []string) []string {
	return sanitize(d.allowed, requested)
}

// SanitizeScoped is SanitizeAttributes against the allow-list of scope.
func (d *Descriptor) SanitizeScoped(scope string, requested []string) ([]string, error) {
	allowed, err := d.AllowedAttributes(scope)
	if err != nil {
		return nil, err
	}
	return sanitize(allowed, requested), nil
}

// FilterBuilder returns the custom filter builder registered for field.
func (d *Descriptor) FilterBuilder(field string) (FilterFunc, bool) {
	fn, ok := d.filters[field]
	return fn, ok
}

func sanitize(allowed, requested []string) []string {
	if requested == nil {
		return slices.Clone(allowed)
	}
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		if slices.Contains(allowed, name) && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}
