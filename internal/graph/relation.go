package graph

import "github.com/roach88/relsync/internal/ir"

// Relation is a resolved relation: every default applied and the linking
// columns known.
//
// Rows are linked when the source row's SourceKey equals the target row's
// TargetKey. For MANY_TO_MANY the link goes through a Through row whose
// ForeignKey equals the source's SourceKey and whose OtherKey equals the
// target's TargetKey.
type Relation struct {
	Type       ir.RelationType
	Source     string
	Target     string
	Alias      string
	ForeignKey string
	OtherKey   string
	Through    string
	OnDelete   ir.CascadeAction
	OnUpdate   ir.CascadeAction
	Virtual    bool
	Scope      ir.Filter

	SourceKey string
	TargetKey string
}

// Many reports whether the relation resolves to a list.
func (r Relation) Many() bool {
	return r.Type.Many()
}

// Holder returns the model that stores ForeignKey.
func (r Relation) Holder() string {
	switch {
	case r.Type == ir.RelationManyToMany:
		return r.Through
	case r.Type.SourceHoldsKey():
		return r.Source
	default:
		return r.Target
	}
}

// Referenced returns the model whose key ForeignKey points at.
func (r Relation) Referenced() string {
	if r.Type.SourceHoldsKey() {
		return r.Target
	}
	return r.Source
}
