package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/relsync/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// ModelSpec errors (E101-E119)
	ErrModelNameEmpty       = "E101" // model name is required
	ErrModelNoAttributes    = "E102" // at least one attribute required
	ErrInvalidFieldType     = "E103" // invalid attribute type
	ErrDuplicateName        = "E104" // duplicate attribute or alias
	ErrInvalidRelationType  = "E105" // unknown relation type
	ErrInvalidCascadeAction = "E106" // unknown onDelete/onUpdate action
	ErrRelationNoTarget     = "E107" // relation target is required
	ErrThroughRequired      = "E108" // MANY_TO_MANY requires through
	ErrRecursiveTarget      = "E109" // RECURSIVE target must be the model itself
	ErrIndexField           = "E110" // index references unknown attribute
	ErrScopeField           = "E111" // scope references unknown attribute
	ErrInvalidOrder         = "E112" // default order is malformed
	ErrAutoIncrement        = "E113" // autoIncrement on a non-int or non-primary attribute
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled model declaration.
// Returns all errors found (does not fail-fast).
// Cross-model checks (targets that exist, key placement) are done when the
// relation graph is built.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.ModelSpec:
		return validateModelSpec(spec)
	case ir.ModelSpec:
		return validateModelSpec(&spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// validateModelSpec validates one model declaration.
func validateModelSpec(spec *ir.ModelSpec) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "model name is required and must be non-empty",
			Code:    ErrModelNameEmpty,
		})
	}

	// E102: at least one attribute
	if len(spec.Attributes) == 0 {
		errs = append(errs, ValidationError{
			Field:   "attributes",
			Message: "at least one attribute is required",
			Code:    ErrModelNoAttributes,
		})
	}

	names := make(map[string]bool)

	for i, attr := range spec.Attributes {
		field := fmt.Sprintf("attributes[%d]", i)

		// E104: duplicate attribute name
		if names[attr.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate attribute name: %q", attr.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[attr.Name] = true

		// E103: supported type
		if !attr.Type.Valid() {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("invalid type %q for attribute %q", attr.Type, attr.Name),
				Code:    ErrInvalidFieldType,
			})
		}

		// E113: autoIncrement only on int primary keys
		if attr.AutoIncrement && (!attr.Primary || attr.Type != ir.TypeInt) {
			errs = append(errs, ValidationError{
				Field:   field + ".autoIncrement",
				Message: fmt.Sprintf("autoIncrement requires an int primary key, got %q", attr.Name),
				Code:    ErrAutoIncrement,
			})
		}
	}

	for i, rel := range spec.Relations {
		errs = append(errs, validateRelation(spec, rel, fmt.Sprintf("relations[%d]", i), names)...)
	}

	for i, idx := range spec.Indexes {
		for _, f := range idx.Fields {
			if _, ok := spec.Attribute(f); !ok {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("indexes[%d].fields", i),
					Message: fmt.Sprintf("index %q references unknown attribute %q", idx.Name, f),
					Code:    ErrIndexField,
				})
			}
		}
	}

	for _, scope := range sortedScopeNames(spec.Scopes) {
		for _, f := range spec.Scopes[scope] {
			if _, ok := spec.Attribute(f); !ok {
				errs = append(errs, ValidationError{
					Field:   "scopes." + scope,
					Message: fmt.Sprintf("scope %q references unknown attribute %q", scope, f),
					Code:    ErrScopeField,
				})
			}
		}
	}

	if spec.Order != nil {
		if _, ok := spec.Attribute(spec.Order.Field); !ok {
			errs = append(errs, ValidationError{
				Field:   "order.field",
				Message: fmt.Sprintf("order references unknown attribute %q", spec.Order.Field),
				Code:    ErrInvalidOrder,
			})
		}
		if !spec.Order.Ordering.Valid() {
			errs = append(errs, ValidationError{
				Field:   "order.ordering",
				Message: fmt.Sprintf("invalid ordering %q, must be \"ASC\", \"DESC\", or \"NONE\"", spec.Order.Ordering),
				Code:    ErrInvalidOrder,
			})
		}
	}

	return errs
}

// validateRelation validates one relation. names holds every attribute and
// alias seen so far and is updated with rel's alias.
func validateRelation(spec *ir.ModelSpec, rel ir.Relation, field string, names map[string]bool) []ValidationError {
	var errs []ValidationError

	// E104: alias collides with an attribute or another alias
	if rel.Alias != "" {
		if names[rel.Alias] {
			errs = append(errs, ValidationError{
				Field:   field + ".alias",
				Message: fmt.Sprintf("duplicate relation alias: %q", rel.Alias),
				Code:    ErrDuplicateName,
			})
		}
		names[rel.Alias] = true
	}

	// E105: known relation type
	if !rel.Type.Valid() {
		errs = append(errs, ValidationError{
			Field:   field + ".type",
			Message: fmt.Sprintf("invalid relation type %q", rel.Type),
			Code:    ErrInvalidRelationType,
		})
	}

	// E106: cascade actions
	if !rel.OnDelete.Valid() {
		errs = append(errs, ValidationError{
			Field:   field + ".onDelete",
			Message: fmt.Sprintf("invalid cascade action %q", rel.OnDelete),
			Code:    ErrInvalidCascadeAction,
		})
	}
	if !rel.OnUpdate.Valid() {
		errs = append(errs, ValidationError{
			Field:   field + ".onUpdate",
			Message: fmt.Sprintf("invalid cascade action %q", rel.OnUpdate),
			Code:    ErrInvalidCascadeAction,
		})
	}

	// E107: target is required (RECURSIVE defaults to the model itself)
	if rel.Target == "" && rel.Type != ir.RelationRecursive {
		errs = append(errs, ValidationError{
			Field:   field + ".target",
			Message: fmt.Sprintf("relation %q requires a target", rel.Alias),
			Code:    ErrRelationNoTarget,
		})
	}

	// E108: MANY_TO_MANY requires through
	if rel.Type == ir.RelationManyToMany && rel.Through == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".through",
			Message: fmt.Sprintf("MANY_TO_MANY relation %q requires a through model", rel.Alias),
			Code:    ErrThroughRequired,
		})
	}

	// E109: RECURSIVE points back at the model itself
	if rel.Type == ir.RelationRecursive && rel.Target != "" && rel.Target != spec.Name {
		errs = append(errs, ValidationError{
			Field:   field + ".target",
			Message: fmt.Sprintf("RECURSIVE relation %q must target %q, got %q", rel.Alias, spec.Name, rel.Target),
			Code:    ErrRecursiveTarget,
		})
	}

	return errs
}

// sortedScopeNames returns scope names in lexical order for stable output.
func sortedScopeNames(scopes map[string][]string) []string {
	names := make([]string, 0, len(scopes))
	for name := range scopes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
