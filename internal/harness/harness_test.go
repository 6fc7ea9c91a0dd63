package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/ir"
)

func loadLifecycle(t *testing.T) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "order-lifecycle.yaml"))
	require.NoError(t, err)
	return scenario
}

func TestRun_OrderLifecycle(t *testing.T) {
	result, err := Run(loadLifecycle(t))
	require.NoError(t, err)

	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
	require.Len(t, result.Trace, 10)

	first := result.Trace[0]
	assert.Equal(t, KindMutate, first.Kind)
	assert.Equal(t, "Order", first.Model)
	assert.Equal(t, "insert", first.Action)
	res, ok := first.Result.(ir.SyncResult)
	require.True(t, ok)
	assert.Equal(t, ir.Row{"id": int64(1)}, res.GeneratedIDs)

	last := result.Trace[9]
	assert.Equal(t, KindResolve, last.Kind)
	assert.Equal(t, "UNKNOWN_MODEL", last.ConfigError)
	assert.Nil(t, last.Result)
}

func TestRun_ReportsUnmetExpectations(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong-expectations
description: every expectation here is wrong
schema: testdata/schema
steps:
  - name: valid customer
    mutate:
      action: insert
      model: Customer
      data: {name: Ann}
    expect:
      errors: [NAME_REQUIRED]
  - mutate:
      action: insert
      model: Customer
      data: {}
  - resolve:
      model: Customer
      query: {count: true}
    expect:
      count: 5
      rows: [{name: Bob}]
  - resolve:
      model: Customer
      scope: admin
`), "")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Equal(t, "step 0 (valid customer): errors: expected [NAME_REQUIRED], got []", result.Errors[0])
	assert.Equal(t, "step 2: count: expected 5, got 1", result.Errors[1])
	assert.True(t, strings.HasPrefix(result.Errors[2], "step 2: rows[0]: expected subset map[name:Bob]"), result.Errors[2])
	assert.Equal(t, `step 3: unexpected config error "UNKNOWN_SCOPE"`, result.Errors[3])
}

func TestRun_SchemaErrors(t *testing.T) {
	dir := t.TempDir()
	scenario := &Scenario{Name: "broken", Description: "no schema files", Schema: dir, Steps: []Step{{Resolve: &ResolveStep{Model: "X"}}}}
	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load schema")
}

func TestRunWithGolden_IsDeterministic(t *testing.T) {
	scenario := loadLifecycle(t)
	dir := t.TempDir()

	first, err := Run(scenario)
	require.NoError(t, err)
	data, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir(dir), goldie.WithNameSuffix(".golden"))
	require.NoError(t, g.Update(t, scenario.Name, data))

	second, err := RunWithGolden(t, scenario, goldie.WithFixtureDir(dir))
	require.NoError(t, err)
	assert.True(t, second.Pass)
}

func TestSnapshot_IsCanonical(t *testing.T) {
	result := NewResult()
	result.Trace = append(result.Trace, TraceEvent{
		Step:   0,
		Kind:   KindMutate,
		Model:  "Tag",
		Action: "insert",
		Result: ir.Success(ir.Row{"id": "t-1"}),
	})

	data, err := Snapshot("tags", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"tags","trace":[{"action":"insert","kind":"mutate","model":"Tag","result":{"errors":[],"generatedIds":{"id":"t-1"}},"step":0}]}`,
		string(data))
}
