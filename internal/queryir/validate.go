package queryir

import (
	"errors"
	"fmt"
)

// Validate checks the structural rules of a query or statement:
//
//  1. Every table name is non-empty
//  2. Selects project at least one column
//  3. Join aliases are unique and every qualified Field names a declared alias
//  4. Update and Delete carry a filter (no accidental full-table writes)
//  5. Insert columns and values are parallel and non-empty
//
// Validate returns every violation found, joined with errors.Join, or nil.
// It is a pure function with no side effects.
func Validate(node any) error {
	v := &validator{}
	switch n := node.(type) {
	case Select:
		v.validateSelect(n)
	case *Select:
		v.validateSelect(*n)
	case Count:
		v.validateCount(n)
	case *Count:
		v.validateCount(*n)
	case Insert:
		v.validateInsert(n)
	case *Insert:
		v.validateInsert(*n)
	case Update:
		v.validateUpdate(n)
	case *Update:
		v.validateUpdate(*n)
	case Delete:
		v.validateDelete(n)
	case *Delete:
		v.validateDelete(*n)
	case Plan:
		v.validatePlan(n)
	case *Plan:
		v.validatePlan(*n)
	default:
		v.addError("unsupported node type: %T", node)
	}
	return errors.Join(v.errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

// addError appends an error message.
func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addError("select: empty table name")
	}
	if len(sel.Columns) == 0 {
		v.addError("select %s: no columns", sel.From)
	}

	aliases := make(map[string]bool)
	for _, j := range sel.Joins {
		if j.Alias == "" || j.Table == "" || j.Key == "" {
			v.addError("select %s: join requires table, alias and key", sel.From)
			continue
		}
		if aliases[j.Alias] {
			v.addError("select %s: duplicate join alias %q", sel.From, j.Alias)
		}
		// A join may only reference the root or an earlier join.
		v.checkField(sel.From, j.Parent, aliases)
		aliases[j.Alias] = true
	}

	for _, c := range sel.Columns {
		v.checkField(sel.From, c.Field, aliases)
	}
	for _, o := range sel.Order {
		v.checkField(sel.From, o.Field, aliases)
	}
	v.validatePredicate(sel.From, sel.Filter, aliases)
}

func (v *validator) validateCount(c Count) {
	if c.From == "" {
		v.addError("count: empty table name")
	}
	v.validatePredicate(c.From, c.Filter, nil)
}

func (v *validator) validateInsert(ins Insert) {
	if ins.Table == "" {
		v.addError("insert: empty table name")
	}
	if len(ins.Columns) != len(ins.Values) {
		v.addError("insert %s: %d columns but %d values", ins.Table, len(ins.Columns), len(ins.Values))
	}
}

func (v *validator) validateUpdate(up Update) {
	if up.Table == "" {
		v.addError("update: empty table name")
	}
	if len(up.Set) == 0 {
		v.addError("update %s: no assignments", up.Table)
	}
	if up.Filter == nil {
		v.addError("update %s: filter is required", up.Table)
	}
	v.validatePredicate(up.Table, up.Filter, nil)
}

func (v *validator) validateDelete(del Delete) {
	if del.Table == "" {
		v.addError("delete: empty table name")
	}
	if del.Filter == nil {
		v.addError("delete %s: filter is required", del.Table)
	}
	v.validatePredicate(del.Table, del.Filter, nil)
}

func (v *validator) validatePlan(p Plan) {
	v.validateSelect(p.Select)
	for _, inc := range p.Includes {
		v.validateInclude(inc)
	}
}

func (v *validator) validateInclude(inc Include) {
	if inc.Alias == "" || inc.Table == "" {
		v.addError("include: alias and table are required")
	}
	if inc.ParentKey == "" || inc.ChildKey == "" {
		v.addError("include %s: parent and child keys are required", inc.Alias)
	}
	if inc.Through != nil && (inc.Through.Table == "" || inc.Through.ParentKey == "" || inc.Through.ChildKey == "") {
		v.addError("include %s: through requires table, parent key and child key", inc.Alias)
	}
	v.validatePredicate(inc.Table, inc.Filter, nil)
	for _, child := range inc.Includes {
		v.validateInclude(child)
	}
}

// checkField reports qualified fields whose source is not a declared alias.
func (v *validator) checkField(table string, f Field, aliases map[string]bool) {
	if f.Name == "" {
		v.addError("%s: empty field name", table)
	}
	if f.Source != "" && !aliases[f.Source] {
		v.addError("%s: field %s references unknown alias %q", table, f.Name, f.Source)
	}
}

// validatePredicate recursively validates a predicate tree.
func (v *validator) validatePredicate(table string, p Predicate, aliases map[string]bool) {
	if p == nil {
		return
	}

	switch pred := p.(type) {
	case Equals:
		v.checkField(table, pred.Field, aliases)
	case *Equals:
		v.checkField(table, pred.Field, aliases)
	case Compare:
		v.checkField(table, pred.Field, aliases)
		v.checkOp(table, pred.Op)
	case *Compare:
		v.checkField(table, pred.Field, aliases)
		v.checkOp(table, pred.Op)
	case IsNull:
		v.checkField(table, pred.Field, aliases)
	case *IsNull:
		v.checkField(table, pred.Field, aliases)
	case In:
		v.checkField(table, pred.Field, aliases)
	case *In:
		v.checkField(table, pred.Field, aliases)
	case Like:
		v.checkField(table, pred.Field, aliases)
	case *Like:
		v.checkField(table, pred.Field, aliases)
	case And:
		for _, child := range pred.Predicates {
			v.validatePredicate(table, child, aliases)
		}
	case *And:
		v.validatePredicate(table, *pred, aliases)
	case Or:
		for _, child := range pred.Predicates {
			v.validatePredicate(table, child, aliases)
		}
	case *Or:
		v.validatePredicate(table, *pred, aliases)
	case Not:
		v.validatePredicate(table, pred.Predicate, aliases)
	case *Not:
		v.validatePredicate(table, pred.Predicate, aliases)
	case False, *False:
	case Exists:
		v.validateExists(table, pred)
	case *Exists:
		v.validateExists(table, *pred)
	default:
		v.addError("%s: unsupported predicate type: %T", table, p)
	}
}

func (v *validator) validateExists(table string, ex Exists) {
	if ex.Table == "" || ex.Link.Key == "" || ex.Link.Parent == "" {
		v.addError("%s: exists requires table, key and parent", table)
	}
	if ex.Link.Through != "" && (ex.Link.ThroughKey == "" || ex.Link.ThroughOther == "") {
		v.addError("%s: exists through %s requires both through keys", table, ex.Link.Through)
	}
	// Fields inside the sub query are scoped to its own table.
	v.validatePredicate(ex.Table, ex.Filter, nil)
}

func (v *validator) checkOp(table string, op CompareOp) {
	switch op {
	case OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
	default:
		v.addError("%s: unsupported comparison operator %q", table, op)
	}
}
