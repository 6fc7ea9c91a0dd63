package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/ir"
)

func validOrder() ir.ModelSpec {
	return ir.ModelSpec{
		Name: "Order",
		Attributes: []ir.Attribute{
			{Name: "id", Type: ir.TypeInt, Primary: true, AutoIncrement: true},
			{Name: "customerId", Type: ir.TypeInt},
			{Name: "note", Type: ir.TypeString},
		},
		Relations: []ir.Relation{
			{Type: ir.RelationMaster, Source: "Order", Target: "Customer", Alias: "customer", ForeignKey: "customerId"},
		},
		Scopes: map[string][]string{"public": {"id", "note"}},
		Order:  &ir.Order{Field: "id", Ordering: ir.OrderDesc},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValidModel(t *testing.T) {
	spec := validOrder()
	assert.Empty(t, Validate(&spec))
	assert.Empty(t, Validate(spec))
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("not a model")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}

func TestValidateModelErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.ModelSpec)
		code   string
	}{
		{"empty name", func(s *ir.ModelSpec) { s.Name = " " }, ErrModelNameEmpty},
		{"no attributes", func(s *ir.ModelSpec) {
			s.Attributes = nil
			s.Scopes = nil
			s.Order = nil
		}, ErrModelNoAttributes},
		{"invalid type", func(s *ir.ModelSpec) { s.Attributes[2].Type = "decimal" }, ErrInvalidFieldType},
		{"duplicate attribute", func(s *ir.ModelSpec) { s.Attributes[2].Name = "customerId" }, ErrDuplicateName},
		{"alias collides with attribute", func(s *ir.ModelSpec) { s.Relations[0].Alias = "note" }, ErrDuplicateName},
		{"relation type", func(s *ir.ModelSpec) { s.Relations[0].Type = "SIBLING" }, ErrInvalidRelationType},
		{"cascade action", func(s *ir.ModelSpec) { s.Relations[0].OnDelete = "DROP" }, ErrInvalidCascadeAction},
		{"missing target", func(s *ir.ModelSpec) { s.Relations[0].Target = "" }, ErrRelationNoTarget},
		{"many to many without through", func(s *ir.ModelSpec) {
			s.Relations = append(s.Relations, ir.Relation{Type: ir.RelationManyToMany, Target: "Tag", Alias: "tags"})
		}, ErrThroughRequired},
		{"recursive elsewhere", func(s *ir.ModelSpec) {
			s.Relations = append(s.Relations, ir.Relation{Type: ir.RelationRecursive, Target: "Customer", Alias: "children"})
		}, ErrRecursiveTarget},
		{"index field", func(s *ir.ModelSpec) {
			s.Indexes = []ir.Index{{Name: "bad", Fields: []string{"missing"}}}
		}, ErrIndexField},
		{"scope field", func(s *ir.ModelSpec) { s.Scopes["public"] = []string{"secret"} }, ErrScopeField},
		{"order field", func(s *ir.ModelSpec) { s.Order.Field = "missing" }, ErrInvalidOrder},
		{"ordering", func(s *ir.ModelSpec) { s.Order.Ordering = "UP" }, ErrInvalidOrder},
		{"auto increment on string", func(s *ir.ModelSpec) {
			s.Attributes[2].AutoIncrement = true
		}, ErrAutoIncrement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validOrder()
			tt.mutate(&spec)

			errs := Validate(&spec)
			assert.Contains(t, codes(errs), tt.code)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	spec := validOrder()
	spec.Name = ""
	spec.Attributes[1].Type = "money"
	spec.Relations[0].OnUpdate = "EXPLODE"

	errs := Validate(&spec)
	assert.Equal(t, []string{ErrModelNameEmpty, ErrInvalidFieldType, ErrInvalidCascadeAction}, codes(errs))
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "name", Message: "required", Code: ErrModelNameEmpty}
	assert.Equal(t, "[E101] name: required", err.Error())

	err.Line = 4
	assert.Equal(t, "[E101] line 4: name: required", err.Error())
}
