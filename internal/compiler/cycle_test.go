package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/ir"
)

func masterModel(name, target string, required bool) ir.ModelSpec {
	return ir.ModelSpec{
		Name: name,
		Attributes: []ir.Attribute{
			{Name: "id", Type: ir.TypeInt, Primary: true, AutoIncrement: true},
			{Name: "refId", Type: ir.TypeInt, Required: required},
		},
		Relations: []ir.Relation{
			{Type: ir.RelationMaster, Source: name, Target: target, Alias: "ref", ForeignKey: "refId"},
		},
	}
}

func TestAnalyzeCyclesEmpty(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(nil))
}

func TestAnalyzeCyclesDAG(t *testing.T) {
	specs := []ir.ModelSpec{
		masterModel("Order", "Customer", true),
		{Name: "Customer", Attributes: []ir.Attribute{{Name: "id", Type: ir.TypeInt, Primary: true}}},
	}
	assert.Empty(t, AnalyzeCycles(specs))
}

func TestAnalyzeCyclesTwoModels(t *testing.T) {
	specs := []ir.ModelSpec{
		masterModel("A", "B", true),
		masterModel("B", "A", true),
	}

	warnings := AnalyzeCycles(specs)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"A", "B", "A"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "A → B → A")
}

func TestAnalyzeCyclesSelfLoop(t *testing.T) {
	warnings := AnalyzeCycles([]ir.ModelSpec{masterModel("Node", "Node", true)})
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"Node", "Node"}, warnings[0].Path)
}

func TestAnalyzeCyclesIgnoresOptionalKeys(t *testing.T) {
	specs := []ir.ModelSpec{
		masterModel("A", "B", true),
		masterModel("B", "A", false),
	}
	assert.Empty(t, AnalyzeCycles(specs))
}
