package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/relsync/internal/ir"
)

// CompileModel parses a CUE value into a ModelSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: Order: { attributes: { ... } }`)
//	spec, err := CompileModel(v.LookupPath(cue.ParsePath("model.Order")))
//
// Attributes and relations keep their declaration order.
func CompileModel(v cue.Value) (*ir.ModelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ModelSpec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	table, _, err := lookupString(v, "table")
	if err != nil {
		return nil, err
	}
	spec.Table = table

	spec.Attributes, err = parseAttributes(v)
	if err != nil {
		return nil, err
	}
	if len(spec.Attributes) == 0 {
		return nil, &CompileError{
			Field:   "attributes",
			Message: "at least one attribute is required",
			Pos:     v.Pos(),
		}
	}

	spec.Relations, err = parseRelations(v, spec.Name)
	if err != nil {
		return nil, err
	}

	spec.Indexes, err = parseIndexes(v)
	if err != nil {
		return nil, err
	}

	spec.Scopes, err = parseScopes(v)
	if err != nil {
		return nil, err
	}

	spec.Order, err = parseOrder(v)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// parseAttributes extracts the attributes struct.
func parseAttributes(v cue.Value) ([]ir.Attribute, error) {
	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return nil, nil
	}

	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var attrs []ir.Attribute
	for iter.Next() {
		attr, err := parseAttribute(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// parseAttribute parses one attribute declaration. A bare string is
// shorthand for {type: <string>}.
func parseAttribute(name string, v cue.Value) (ir.Attribute, error) {
	attr := ir.Attribute{Name: name}

	if typ, err := v.String(); err == nil {
		attr.Type = ir.AttributeType(typ)
		return attr, nil
	}

	typ, ok, err := lookupString(v, "type")
	if err != nil {
		return attr, err
	}
	if !ok {
		return attr, &CompileError{
			Field:   "attributes." + name + ".type",
			Message: "attribute type is required",
			Pos:     v.Pos(),
		}
	}
	attr.Type = ir.AttributeType(typ)

	flags := []struct {
		field string
		dst   *bool
	}{
		{"required", &attr.Required},
		{"unique", &attr.Unique},
		{"primary", &attr.Primary},
		{"autoIncrement", &attr.AutoIncrement},
	}
	for _, f := range flags {
		if *f.dst, _, err = lookupBool(v, f.field); err != nil {
			return attr, err
		}
	}

	mutable, ok, err := lookupBool(v, "mutable")
	if err != nil {
		return attr, err
	}
	attr.Immutable = ok && !mutable

	if attr.Validate, _, err = lookupString(v, "validate"); err != nil {
		return attr, err
	}

	defVal := v.LookupPath(cue.ParsePath("default"))
	if defVal.Exists() {
		var def any
		if err := defVal.Decode(&def); err != nil {
			return attr, formatCUEError(err)
		}
		attr.DefaultValue = def
	}

	return attr, nil
}

// parseRelations extracts the relations struct. The field label is the
// relation alias.
func parseRelations(v cue.Value, source string) ([]ir.Relation, error) {
	relsVal := v.LookupPath(cue.ParsePath("relations"))
	if !relsVal.Exists() {
		return nil, nil
	}

	iter, err := relsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rels []ir.Relation
	for iter.Next() {
		alias := iter.Label()
		rv := iter.Value()

		rel := ir.Relation{Source: source, Alias: alias}

		typ, ok, err := lookupString(rv, "type")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &CompileError{
				Field:   "relations." + alias + ".type",
				Message: "relation type is required",
				Pos:     rv.Pos(),
			}
		}
		rel.Type = ir.RelationType(typ)

		strs := []struct {
			field string
			dst   *string
		}{
			{"target", &rel.Target},
			{"foreignKey", &rel.ForeignKey},
			{"references", &rel.References},
			{"otherKey", &rel.OtherKey},
			{"through", &rel.Through},
		}
		for _, s := range strs {
			if *s.dst, _, err = lookupString(rv, s.field); err != nil {
				return nil, err
			}
		}

		onDelete, _, err := lookupString(rv, "onDelete")
		if err != nil {
			return nil, err
		}
		rel.OnDelete = ir.CascadeAction(onDelete)

		onUpdate, _, err := lookupString(rv, "onUpdate")
		if err != nil {
			return nil, err
		}
		rel.OnUpdate = ir.CascadeAction(onUpdate)

		if rel.Virtual, _, err = lookupBool(rv, "virtual"); err != nil {
			return nil, err
		}

		scopeVal := rv.LookupPath(cue.ParsePath("scope"))
		if scopeVal.Exists() {
			var scope map[string]any
			if err := scopeVal.Decode(&scope); err != nil {
				return nil, formatCUEError(err)
			}
			rel.Scope = ir.Filter(scope)
		}

		rels = append(rels, rel)
	}
	return rels, nil
}

// parseIndexes extracts the indexes list.
func parseIndexes(v cue.Value) ([]ir.Index, error) {
	idxVal := v.LookupPath(cue.ParsePath("indexes"))
	if !idxVal.Exists() {
		return nil, nil
	}

	iter, err := idxVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var indexes []ir.Index
	for iter.Next() {
		var idx ir.Index
		if err := iter.Value().Decode(&idx); err != nil {
			return nil, formatCUEError(err)
		}
		if len(idx.Fields) == 0 {
			return nil, &CompileError{
				Field:   "indexes",
				Message: "index must list at least one field",
				Pos:     iter.Value().Pos(),
			}
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

// parseScopes extracts named attribute scopes.
func parseScopes(v cue.Value) (map[string][]string, error) {
	scopesVal := v.LookupPath(cue.ParsePath("scopes"))
	if !scopesVal.Exists() {
		return nil, nil
	}

	var scopes map[string][]string
	if err := scopesVal.Decode(&scopes); err != nil {
		return nil, formatCUEError(err)
	}
	return scopes, nil
}

// parseOrder extracts the optional default order.
func parseOrder(v cue.Value) (*ir.Order, error) {
	orderVal := v.LookupPath(cue.ParsePath("order"))
	if !orderVal.Exists() {
		return nil, nil
	}

	var order ir.Order
	if err := orderVal.Decode(&order); err != nil {
		return nil, formatCUEError(err)
	}
	return &order, nil
}

// lookupString returns the string at field, reporting whether it exists.
func lookupString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", true, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be a string: %v", err),
			Pos:     fv.Pos(),
		}
	}
	return s, true, nil
}

// lookupBool returns the bool at field, reporting whether it exists.
func lookupBool(v cue.Value, field string) (bool, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, true, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be a bool: %v", err),
			Pos:     fv.Pos(),
		}
	}
	return b, true, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
