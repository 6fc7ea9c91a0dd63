package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/ir"
)

func TestLoadScenario_ResolvesSchemaPath(t *testing.T) {
	scenario := loadLifecycle(t)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "schema"), scenario.Schema)
	assert.Equal(t, "order-lifecycle", scenario.Name)
	require.Len(t, scenario.Steps, 10)

	req, err := decodeRequest(scenario.Steps[0].Mutate)
	require.NoError(t, err)
	assert.Equal(t, ir.ActionInsert, req.Action)
	assert.Equal(t, "Order", req.Model)
	assert.Equal(t, "first", req.Data["note"])

	q, err := decodeQuery(scenario.Steps[1].Resolve.Query)
	require.NoError(t, err)
	assert.True(t, q.Count)
	require.Contains(t, q.Include, "customer")
	assert.Equal(t, &ir.SubQuery{}, q.Include["customer"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	schema := filepath.Join("testdata", "schema")
	header := "name: x\ndescription: y\nschema: " + schema + "\n"

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: header + "stepz: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "description: y\nschema: " + schema + "\nsteps: [{resolve: {model: A}}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\nschema: " + schema + "\nsteps: [{resolve: {model: A}}]\n",
			want: "description is required",
		},
		{
			name: "missing schema",
			yaml: "name: x\ndescription: y\nsteps: [{resolve: {model: A}}]\n",
			want: "schema is required",
		},
		{
			name: "schema not found",
			yaml: "name: x\ndescription: y\nschema: nowhere\nsteps: [{resolve: {model: A}}]\n",
			want: "schema directory not found",
		},
		{
			name: "no steps",
			yaml: header,
			want: "steps list is required",
		},
		{
			name: "empty step",
			yaml: header + "steps: [{name: nothing}]\n",
			want: "steps[0]: one of mutate or resolve is required",
		},
		{
			name: "both kinds",
			yaml: header + "steps: [{mutate: {model: A, action: insert}, resolve: {model: A}}]\n",
			want: "mutually exclusive",
		},
		{
			name: "resolve without model",
			yaml: header + "steps: [{resolve: {scope: public}}]\n",
			want: "steps[0].resolve: model is required",
		},
		{
			name: "mutate without model",
			yaml: header + "steps: [{mutate: {action: insert}}]\n",
			want: "steps[0].mutate: model is required",
		},
		{
			name: "malformed query",
			yaml: header + "steps: [{resolve: {model: A, query: {count: maybe}}}]\n",
			want: "steps[0].resolve.query",
		},
		{
			name: "count on mutate",
			yaml: header + "steps: [{mutate: {model: A, action: insert}, expect: {count: 1}}]\n",
			want: "count and rows apply to resolve steps",
		},
		{
			name: "errors on resolve",
			yaml: header + "steps: [{resolve: {model: A}, expect: {errors: []}}]\n",
			want: "apply to mutate steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_AbsoluteSchemaKept(t *testing.T) {
	abs, err := filepath.Abs(filepath.Join("testdata", "schema"))
	require.NoError(t, err)
	data := []byte("name: x\ndescription: y\nschema: " + abs + "\nsteps: [{resolve: {model: A}}]\n")

	scenario, err := ParseScenario(data, os.TempDir())
	require.NoError(t, err)
	assert.Equal(t, abs, scenario.Schema)
}
