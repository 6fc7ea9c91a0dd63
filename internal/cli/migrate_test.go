package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_DryRunPrintsDDL(t *testing.T) {
	db := tempDatabase(t)

	out, _, err := execute(t, "migrate", "--dry-run", "--schema-dir", shopSchema, "--database", db)
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS")
	assert.Contains(t, out, "customers")
	assert.Contains(t, out, "order_tags_pair")

	_, statErr := os.Stat(db)
	assert.True(t, os.IsNotExist(statErr), "dry run must not create the database")
}

func TestMigrate_CreatesDatabase(t *testing.T) {
	db := tempDatabase(t)

	out, _, err := execute(t, "migrate", "--schema-dir", shopSchema, "--database", db, "--format", "json")
	require.NoError(t, err)

	var result MigrateResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, db, result.Database)
	assert.Len(t, result.Models, 5)
	assert.NotZero(t, result.Version)
	assert.Empty(t, result.Statements)

	// Running again is a no-op at the same version.
	out, _, err = execute(t, "migrate", "--schema-dir", shopSchema, "--database", db, "--format", "json")
	require.NoError(t, err)
	var again MigrateResult
	decodeResponse(t, out, &again)
	assert.Equal(t, result.Version, again.Version)
}

func TestMigrate_InvalidSchema(t *testing.T) {
	_, _, err := execute(t, "migrate", "--schema-dir", "testdata/invalid", "--database", tempDatabase(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
