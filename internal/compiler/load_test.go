package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopSchema = `
package shop

model: Customer: {
	attributes: {
		id:   {type: "int", primary: true, autoIncrement: true}
		name: {type: "string", required: true}
	}
}

model: Order: {
	attributes: {
		id:         {type: "int", primary: true, autoIncrement: true}
		customerId: {type: "int"}
	}
	relations: customer: {type: "MASTER", target: "Customer", foreignKey: "customerId"}
}
`

func writeSchema(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestLoadSchemaValid(t *testing.T) {
	dir := writeSchema(t, map[string]string{"shop.cue": shopSchema})

	result, errs := LoadSchema(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, result)

	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Models, 2)
	assert.Equal(t, "Customer", result.Models[0].Name)
	assert.Equal(t, "Order", result.Models[1].Name)
	assert.Empty(t, result.Warnings)
}

func TestLoadSchemaMissingDir(t *testing.T) {
	_, errs := LoadSchema(filepath.Join(t.TempDir(), "nope"), LoadModeFailFast)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadSchemaNoFiles(t *testing.T) {
	_, errs := LoadSchema(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrCodeNoFiles)
}

func TestLoadSchemaNoModels(t *testing.T) {
	dir := writeSchema(t, map[string]string{"x.cue": "package shop\n\nother: 1\n"})

	_, errs := LoadSchema(dir, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrCodeNoModels)
}

func TestLoadSchemaCollectsValidationErrors(t *testing.T) {
	dir := writeSchema(t, map[string]string{"bad.cue": `
package shop

model: A: attributes: id: {type: "decimal"}
model: B: {
	attributes: id: "int"
	relations: tags: {type: "MANY_TO_MANY", target: "A"}
}
`})

	result, errs := LoadSchema(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), ErrInvalidFieldType)
	assert.Contains(t, errs[1].Error(), ErrThroughRequired)
	assert.Len(t, result.Models, 2)

	_, errs = LoadSchema(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}
