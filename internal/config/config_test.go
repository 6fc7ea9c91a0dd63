package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("relsync", pflag.ContinueOnError)
	fs.String("database", DefaultDatabase, "")
	fs.String("schema-dir", DefaultSchemaDir, "")
	fs.String("format", DefaultFormat, "")
	fs.Bool("verbose", false, "")
	fs.String("scope", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", testFlags())
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Database:  DefaultDatabase,
		SchemaDir: DefaultSchemaDir,
		Format:    DefaultFormat,
	}, cfg)
}

func TestLoad_FileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(DefaultFile, []byte("format: json\nscope: public\n"), 0644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultFile, cfg.File)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "public", cfg.Scope)
}

func TestLoad_FilePathsResolveAgainstFile(t *testing.T) {
	path := writeConfig(t, "database: data/app.db\nschema_dir: models\nverbose: true\n")
	base := filepath.Dir(path)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "data", "app.db"), cfg.Database)
	assert.Equal(t, filepath.Join(base, "models"), cfg.SchemaDir)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_MemoryDatabaseUnchanged(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database: \":memory:\"\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, MemoryDatabase, cfg.Database)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, "format: json\nscope: public\ndatabase: /abs/file.db\n")

	t.Setenv("RELSYNC_SCOPE", "internal")
	t.Setenv("RELSYNC_VERBOSE", "true")
	t.Setenv("RELSYNC_SCHEMA_DIR", "/env/schema")

	flags := testFlags()
	require.NoError(t, flags.Set("scope", "admin"))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format, "file beats default")
	assert.Equal(t, "/abs/file.db", cfg.Database, "unchanged flag does not override file")
	assert.Equal(t, "/env/schema", cfg.SchemaDir, "env beats default")
	assert.True(t, cfg.Verbose, "env value is weakly typed")
	assert.Equal(t, "admin", cfg.Scope, "flag beats env")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) (string, *pflag.FlagSet)
		want  string
	}{
		{
			name: "missing explicit file",
			setup: func(t *testing.T) (string, *pflag.FlagSet) {
				return filepath.Join(t.TempDir(), "nope.yaml"), nil
			},
			want: "error reading config file",
		},
		{
			name: "malformed yaml",
			setup: func(t *testing.T) (string, *pflag.FlagSet) {
				return writeConfig(t, "format: [json\n"), nil
			},
			want: "error reading config file",
		},
		{
			name: "invalid format flag",
			setup: func(t *testing.T) (string, *pflag.FlagSet) {
				t.Chdir(t.TempDir())
				flags := testFlags()
				require.NoError(t, flags.Set("format", "xml"))
				return "", flags
			},
			want: `invalid format "xml"`,
		},
		{
			name: "empty schema dir",
			setup: func(t *testing.T) (string, *pflag.FlagSet) {
				return writeConfig(t, "schema_dir: \"\"\n"), nil
			},
			want: "schema_dir is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, flags := tt.setup(t)
			_, err := Load(path, flags)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
