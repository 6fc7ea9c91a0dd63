package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relsync/internal/store"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	DryRun bool
}

// MigrateResult describes a migration.
type MigrateResult struct {
	Database   string   `json:"database,omitempty"`
	Models     []string `json:"models"`
	Version    int32    `json:"version,omitempty"`
	Statements []string `json:"statements,omitempty"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables and indexes of the schema",
		Long: `Create every table, foreign key and index derived from the schema.
Existing tables are never altered; the schema fingerprint is recorded in
the database so an unchanged schema is a no-op.

Examples:
  relsync migrate --database ./app.db --schema-dir ./schema
  relsync migrate --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the DDL without touching the database")
	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.Config

	g, err := loadGraph(cfg.SchemaDir)
	if err != nil {
		return err
	}
	result := MigrateResult{Models: g.Names()}

	if opts.DryRun {
		result.Statements = store.DDL(g)
		return formatter.Success(strings.Join(result.Statements, ";\n\n")+";", result)
	}

	st, err := store.Open(cfg.Database, g)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if err := st.Migrate(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to migrate database", err)
	}
	if result.Version, err = st.SchemaVersion(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to read schema version", err)
	}
	result.Database = cfg.Database

	formatter.VerboseLog("schema version %d", result.Version)
	return formatter.Success(fmt.Sprintf("✓ Migrated %s: %d model(s)", cfg.Database, len(result.Models)), result)
}
