package ir

// AttributeType names the storage type of an attribute.
type AttributeType string

const (
	TypeInt      AttributeType = "int"
	TypeFloat    AttributeType = "float"
	TypeString   AttributeType = "string"
	TypeText     AttributeType = "text"
	TypeBool     AttributeType = "bool"
	TypeDatetime AttributeType = "datetime"
	TypeUUID     AttributeType = "uuid"
	TypeULID     AttributeType = "ulid"
	TypeJSON     AttributeType = "json"
)

// AttributeTypes lists every supported attribute type.
var AttributeTypes = []AttributeType{
	TypeInt, TypeFloat, TypeString, TypeText, TypeBool,
	TypeDatetime, TypeUUID, TypeULID, TypeJSON,
}

// Valid reports whether t is a supported attribute type.
func (t AttributeType) Valid() bool {
	for _, known := range AttributeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Attribute declares one column of a model.
type Attribute struct {
	Name          string        `json:"name"`
	Type          AttributeType `json:"type"`
	Required      bool          `json:"required,omitempty"`
	Unique        bool          `json:"unique,omitempty"`
	Primary       bool          `json:"primary,omitempty"`
	AutoIncrement bool          `json:"autoIncrement,omitempty"`

	// Immutable attributes are written on insert and never updated.
	// Declared as `mutable: false`.
	Immutable bool `json:"immutable,omitempty"`

	// DefaultValue is applied on insert when the attribute is absent.
	DefaultValue any `json:"defaultValue,omitempty"`

	// Validate holds validator tags checked on insert and update
	// (e.g. "email", "max=140").
	Validate string `json:"validate,omitempty"`
}

// IsMutable reports whether the attribute may appear in an update.
// Primary keys are never mutable.
func (a Attribute) IsMutable() bool {
	return !a.Primary && !a.Immutable
}

// IsInsertable reports whether the attribute may be written on insert.
// Auto-increment primary keys are assigned by storage.
func (a Attribute) IsInsertable() bool {
	return !(a.Primary && a.AutoIncrement)
}

// RelationType is the kind of edge between two models.
type RelationType string

const (
	RelationSuperclass RelationType = "SUPERCLASS"
	RelationSubclass   RelationType = "SUBCLASS"
	RelationMaster     RelationType = "MASTER"
	RelationDetail     RelationType = "DETAIL"
	RelationRecursive  RelationType = "RECURSIVE"
	RelationManyToMany RelationType = "MANY_TO_MANY"
	RelationInjective  RelationType = "INJECTIVE"
)

// RelationTypes lists every supported relation type.
var RelationTypes = []RelationType{
	RelationSuperclass, RelationSubclass, RelationMaster, RelationDetail,
	RelationRecursive, RelationManyToMany, RelationInjective,
}

// Valid reports whether t is a supported relation type.
func (t RelationType) Valid() bool {
	for _, known := range RelationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Many reports whether the relation resolves to a list of rows.
func (t RelationType) Many() bool {
	switch t {
	case RelationDetail, RelationRecursive, RelationManyToMany:
		return true
	default:
		return false
	}
}

// SourceHoldsKey reports whether the foreign key lives on the source model.
// For every other type it lives on the target (or the through model).
func (t RelationType) SourceHoldsKey() bool {
	return t == RelationMaster || t == RelationSuperclass
}

// CascadeAction is a referential action for ON DELETE / ON UPDATE.
type CascadeAction string

const (
	ActionNone       CascadeAction = ""
	ActionCascade    CascadeAction = "CASCADE"
	ActionSetNull    CascadeAction = "SET NULL"
	ActionRestrict   CascadeAction = "RESTRICT"
	ActionNoAction   CascadeAction = "NO ACTION"
	ActionSetDefault CascadeAction = "SET DEFAULT"
)

// Valid reports whether a is a known cascade action. Empty is valid and
// means NO ACTION.
func (a CascadeAction) Valid() bool {
	switch a {
	case ActionNone, ActionCascade, ActionSetNull, ActionRestrict, ActionNoAction, ActionSetDefault:
		return true
	default:
		return false
	}
}

// Relation declares a typed edge from Source to Target.
//
// Key placement by type:
//   - MASTER, SUPERCLASS: ForeignKey on Source references a key on Target
//   - DETAIL, RECURSIVE, SUBCLASS, INJECTIVE: ForeignKey on Target references
//     a key on Source
//   - MANY_TO_MANY: ForeignKey on Through references the Source primary key,
//     OtherKey on Through references a key on Target
//
// References names the referenced key. It defaults to the single primary
// key of the referenced model.
type Relation struct {
	Type       RelationType  `json:"type"`
	Source     string        `json:"source"`
	Target     string        `json:"target"`
	Alias      string        `json:"alias"`
	ForeignKey string        `json:"foreignKey"`
	References string        `json:"references,omitempty"`
	OtherKey   string        `json:"otherKey,omitempty"`
	Through    string        `json:"through,omitempty"`
	OnDelete   CascadeAction `json:"onDelete,omitempty"`
	OnUpdate   CascadeAction `json:"onUpdate,omitempty"`

	// Virtual relations have no storage-side target. They are skipped by
	// includes and stripped from mutation data.
	Virtual bool `json:"virtual,omitempty"`

	// Scope is a static filter on the target applied to every read through
	// this relation and merged into nested inserts.
	Scope Filter `json:"scope,omitempty"`
}

// Index declares a (possibly unique) multi-column index.
type Index struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
	Unique bool     `json:"unique,omitempty"`
}

// ModelSpec is the declaration of one model as compiled from the schema.
type ModelSpec struct {
	Name       string      `json:"name"`
	Table      string      `json:"table,omitempty"`
	Attributes []Attribute `json:"attributes"`
	Relations  []Relation  `json:"relations,omitempty"`
	Indexes    []Index     `json:"indexes,omitempty"`

	// Scopes maps a scope name to the attributes visible under it.
	Scopes map[string][]string `json:"scopes,omitempty"`

	// Order overrides the default order (first primary key ascending).
	Order *Order `json:"order,omitempty"`
}

// Attribute returns the named attribute.
func (s *ModelSpec) Attribute(name string) (Attribute, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}
