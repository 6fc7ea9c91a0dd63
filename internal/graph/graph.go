package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/queryir"
)

// FilterFunc builds the predicate for one filter key of a model. It
// overrides the default translation of that key. Returning a nil predicate
// drops the key.
type FilterFunc func(ctx context.Context, value any) (queryir.Predicate, error)

// Option configures a Graph at construction.
type Option func(*options)

type options struct {
	filters map[string]map[string]FilterFunc
}

// WithFilter registers a custom filter builder for field on model. The
// field does not need to be an attribute.
func WithFilter(model, field string, fn FilterFunc) Option {
	return func(o *options) {
		if o.filters[model] == nil {
			o.filters[model] = make(map[string]FilterFunc)
		}
		o.filters[model][field] = fn
	}
}

// Graph is the immutable registry of model descriptors.
type Graph struct {
	models map[string]*Descriptor
	names  []string
}

// New builds a Graph from compiled model declarations.
//
// Every relation default is applied and every invariant checked here, so a
// Graph that builds is safe to serve requests: unknown targets, duplicate
// aliases, missing foreign keys, MANY_TO_MANY without a through model,
// RECURSIVE relations to another model, invalid cascade actions and
// ambiguous referenced keys all fail with a *ir.ConfigError.
func New(specs []ir.ModelSpec, opts ...Option) (*Graph, error) {
	o := &options{filters: make(map[string]map[string]FilterFunc)}
	for _, opt := range opts {
		opt(o)
	}

	g := &Graph{models: make(map[string]*Descriptor, len(specs))}

	for _, spec := range specs {
		if spec.Name == "" {
			return nil, ir.NewConfigError(ir.ErrCodeInvalidModel, "", "model name is required")
		}
		if _, dup := g.models[spec.Name]; dup {
			return nil, ir.NewConfigError(ir.ErrCodeDuplicate, spec.Name, "model declared twice")
		}
		d, err := newDescriptor(spec)
		if err != nil {
			return nil, err
		}
		g.models[spec.Name] = d
		g.names = append(g.names, spec.Name)
	}

	for _, name := range g.names {
		if err := g.resolveRelations(g.models[name]); err != nil {
			return nil, err
		}
	}

	for model, fields := range o.filters {
		d, ok := g.models[model]
		if !ok {
			return nil, ir.NewConfigError(ir.ErrCodeUnknownModel, model, "filter registered for unknown model")
		}
		for field, fn := range fields {
			if fn == nil {
				return nil, ir.NewConfigError(ir.ErrCodeInvalidModel, model, "nil filter builder for %q", field)
			}
			d.filters[field] = fn
		}
	}

	return g, nil
}

// Model returns the descriptor of the named model.
func (g *Graph) Model(name string) (*Descriptor, error) {
	d, ok := g.models[name]
	if !ok {
		return nil, ir.NewConfigError(ir.ErrCodeUnknownModel, name, "model is not registered")
	}
	return d, nil
}

// Models returns every descriptor in declaration order.
func (g *Graph) Models() []*Descriptor {
	out := make([]*Descriptor, len(g.names))
	for i, name := range g.names {
		out[i] = g.models[name]
	}
	return out
}

// Names returns model names in declaration order.
func (g *Graph) Names() []string {
	return slices.Clone(g.names)
}

// resolveRelations applies relation defaults for d and checks each
// relation against the rest of the graph.
func (g *Graph) resolveRelations(d *Descriptor) error {
	for _, decl := range d.spec.Relations {
		rel, err := g.resolveRelation(d, decl)
		if err != nil {
			return err
		}
		if _, isAttr := d.attrIndex[rel.Alias]; isAttr {
			return relationError(d.name, rel.Alias, "alias collides with an attribute")
		}
		if _, dup := d.relIndex[rel.Alias]; dup {
			return relationError(d.name, rel.Alias, "duplicate alias")
		}
		d.relIndex[rel.Alias] = len(d.relations)
		d.relations = append(d.relations, rel)
	}
	return nil
}

func (g *Graph) resolveRelation(d *Descriptor, decl ir.Relation) (Relation, error) {
	rel := Relation{
		Type:       decl.Type,
		Source:     d.name,
		Target:     decl.Target,
		Alias:      decl.Alias,
		ForeignKey: decl.ForeignKey,
		OtherKey:   decl.OtherKey,
		Through:    decl.Through,
		OnDelete:   decl.OnDelete,
		OnUpdate:   decl.OnUpdate,
		Virtual:    decl.Virtual,
		Scope:      decl.Scope,
	}

	if !rel.Type.Valid() {
		return rel, relationError(d.name, rel.Alias, fmt.Sprintf("invalid relation type %q", rel.Type))
	}
	if !rel.OnDelete.Valid() {
		return rel, relationError(d.name, rel.Alias, fmt.Sprintf("invalid onDelete action %q", rel.OnDelete))
	}
	if !rel.OnUpdate.Valid() {
		return rel, relationError(d.name, rel.Alias, fmt.Sprintf("invalid onUpdate action %q", rel.OnUpdate))
	}

	if rel.Type == ir.RelationRecursive {
		if rel.Target == "" {
			rel.Target = d.name
		}
		if rel.Target != d.name {
			return rel, relationError(d.name, rel.Alias, fmt.Sprintf("RECURSIVE relation must target %s, got %s", d.name, rel.Target))
		}
	}
	if rel.Target == "" {
		return rel, relationError(d.name, rel.Alias, "target is required")
	}

	if rel.Alias == "" {
		switch rel.Type {
		case ir.RelationRecursive:
			rel.Alias = recursiveAlias
		default:
			rel.Alias = DefaultAlias(rel.Target, rel.Many())
		}
	}

	if rel.Type == ir.RelationManyToMany && rel.Through == "" {
		return rel, relationError(d.name, rel.Alias, "MANY_TO_MANY requires a through model")
	}

	// Virtual relations have no storage-side target; only the alias matters.
	if rel.Virtual {
		return rel, nil
	}

	target, ok := g.models[rel.Target]
	if !ok {
		return rel, relationError(d.name, rel.Alias, fmt.Sprintf("unknown target model %q", rel.Target))
	}

	var err error
	switch rel.Type {
	case ir.RelationMaster, ir.RelationSuperclass:
		if rel.ForeignKey == "" {
			rel.ForeignKey = DefaultForeignKey(rel.Target)
		}
		if err := requireAttribute(d, rel.ForeignKey, rel.Alias); err != nil {
			return rel, err
		}
		rel.SourceKey = rel.ForeignKey
		rel.TargetKey, err = referencedKey(target, decl.References, d.name, rel.Alias)

	case ir.RelationDetail, ir.RelationSubclass, ir.RelationInjective, ir.RelationRecursive:
		if rel.ForeignKey == "" {
			if rel.Type == ir.RelationRecursive {
				rel.ForeignKey = recursiveForeignKey
			} else {
				rel.ForeignKey = DefaultForeignKey(d.name)
			}
		}
		if err := requireAttribute(target, rel.ForeignKey, rel.Alias); err != nil {
			return rel, err
		}
		rel.TargetKey = rel.ForeignKey
		rel.SourceKey, err = referencedKey(d, decl.References, d.name, rel.Alias)

	case ir.RelationManyToMany:
		through, ok := g.models[rel.Through]
		if !ok {
			return rel, relationError(d.name, rel.Alias, fmt.Sprintf("unknown through model %q", rel.Through))
		}
		if rel.ForeignKey == "" {
			rel.ForeignKey = DefaultForeignKey(d.name)
		}
		if rel.OtherKey == "" {
			rel.OtherKey = DefaultForeignKey(rel.Target)
		}
		if err := requireAttribute(through, rel.ForeignKey, rel.Alias); err != nil {
			return rel, err
		}
		if err := requireAttribute(through, rel.OtherKey, rel.Alias); err != nil {
			return rel, err
		}
		if rel.SourceKey, err = referencedKey(d, "", d.name, rel.Alias); err != nil {
			return rel, err
		}
		rel.TargetKey, err = referencedKey(target, decl.References, d.name, rel.Alias)
	}

	return rel, err
}

// requireAttribute checks that the model holding a foreign key declares it.
func requireAttribute(holder *Descriptor, attr, alias string) error {
	if _, ok := holder.attrIndex[attr]; !ok {
		return relationError(holder.name, alias, fmt.Sprintf("foreign key %q is not an attribute of %s", attr, holder.name))
	}
	return nil
}

// referencedKey returns the key a foreign key points at: the explicit
// reference when declared, otherwise the single primary key.
func referencedKey(ref *Descriptor, explicit, source, alias string) (string, error) {
	if explicit != "" {
		if _, ok := ref.attrIndex[explicit]; !ok {
			return "", relationError(source, alias, fmt.Sprintf("referenced key %q is not an attribute of %s", explicit, ref.name))
		}
		return explicit, nil
	}
	if len(ref.primaryKeys) != 1 {
		return "", relationError(source, alias, fmt.Sprintf("%s must have exactly one primary key to be referenced, has %d", ref.name, len(ref.primaryKeys)))
	}
	return ref.primaryKeys[0], nil
}

func relationError(model, alias, msg string) error {
	return ir.NewConfigError(ir.ErrCodeInvalidRelation, model, "relation %q: %s", alias, msg)
}
