package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidSchema(t *testing.T) {
	out, _, err := execute(t, "validate", shopSchema)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Schema valid: 5 model(s)")
}

func TestValidate_UsesConfiguredSchemaDir(t *testing.T) {
	out, _, err := execute(t, "validate", "--schema-dir", shopSchema, "--format", "json")
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.ElementsMatch(t, []string{"Customer", "Order", "OrderItem", "Tag", "OrderTag"}, result.Models)
	assert.Empty(t, result.Errors)
}

func TestValidate_InvalidSchema(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/invalid")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Schema invalid")
	assert.Contains(t, out, "writerId")
}

func TestValidate_InvalidSchemaJSON(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/invalid", "--format", "json")
	require.Error(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_INVALID_SCHEMA", resp.Error.Code)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestValidate_MissingDirectory(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
