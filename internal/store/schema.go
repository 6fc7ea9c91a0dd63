package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
	"github.com/roach88/relsync/internal/querysql"
)

// columnTypes maps attribute types to SQLite declared types.
var columnTypes = map[ir.AttributeType]string{
	ir.TypeInt:      "INTEGER",
	ir.TypeFloat:    "REAL",
	ir.TypeString:   "TEXT",
	ir.TypeText:     "TEXT",
	ir.TypeBool:     "BOOLEAN",
	ir.TypeDatetime: "DATETIME",
	ir.TypeUUID:     "TEXT",
	ir.TypeULID:     "TEXT",
	ir.TypeJSON:     "TEXT",
}

// foreignKey is one FOREIGN KEY clause of a table.
type foreignKey struct {
	column    string
	refTable  string
	refColumn string
	onDelete  ir.CascadeAction
	onUpdate  ir.CascadeAction
}

// DDL returns the statements that create every table and index of g.
// Every statement is idempotent.
func DDL(g *graph.Graph) []string {
	fks := foreignKeys(g)

	var stmts []string
	for _, d := range g.Models() {
		stmts = append(stmts, createTable(d, fks[d.Name()]))
		for _, idx := range d.Indexes() {
			stmts = append(stmts, createIndex(d, idx))
		}
	}
	return stmts
}

// Migrate creates the tables and indexes of the store's graph and records
// the schema fingerprint in PRAGMA user_version. A database already at the
// current fingerprint is left untouched. Existing tables are never
// altered.
func (s *Store) Migrate(ctx context.Context) error {
	specs := make([]ir.ModelSpec, 0, len(s.graph.Names()))
	for _, d := range s.graph.Models() {
		specs = append(specs, d.Spec())
	}
	version, err := ir.SchemaVersion(specs)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var current int32
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("migrate: get user_version: %w", err)
	}
	if current == version {
		slog.Debug("schema up to date", "version", version)
		return nil
	}
	if current != 0 {
		slog.Warn("schema fingerprint changed; existing tables are not altered",
			"from", current, "to", version)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", err)
	}
	for _, stmt := range DDL(s.graph) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		tx.Rollback()
		return fmt.Errorf("migrate: set user_version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}

	slog.Debug("schema migrated", "models", len(specs), "version", version)
	return nil
}

// SchemaVersion returns the fingerprint recorded by the last migration.
func (s *Store) SchemaVersion(ctx context.Context) (int32, error) {
	var v int32
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return v, nil
}

func createTable(d *graph.Descriptor, fks []foreignKey) string {
	var defs []string

	pks := d.PrimaryKeys()
	inlinePK := false
	if len(pks) == 1 {
		attr, _ := d.Attribute(pks[0])
		inlinePK = attr.AutoIncrement && attr.Type == ir.TypeInt
	}

	for _, attr := range d.Attributes() {
		def := querysql.Quote(attr.Name) + " " + columnTypes[attr.Type]
		switch {
		case attr.Primary && inlinePK:
			def += " PRIMARY KEY AUTOINCREMENT"
		case attr.Primary || attr.Required:
			def += " NOT NULL"
		}
		if attr.Unique && !attr.Primary {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}

	if len(pks) > 0 && !inlinePK {
		defs = append(defs, "PRIMARY KEY ("+quoteList(pks)+")")
	}

	for _, fk := range fks {
		def := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			querysql.Quote(fk.column), querysql.Quote(fk.refTable), querysql.Quote(fk.refColumn))
		if fk.onDelete != ir.ActionNone {
			def += " ON DELETE " + string(fk.onDelete)
		}
		if fk.onUpdate != ir.ActionNone {
			def += " ON UPDATE " + string(fk.onUpdate)
		}
		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		querysql.Quote(d.Table()), strings.Join(defs, ",\n  "))
}

func createIndex(d *graph.Descriptor, idx ir.Index) string {
	name := idx.Name
	if name == "" {
		name = d.Table() + "_" + strings.Join(idx.Fields, "_") + "_idx"
	}
	kind := "INDEX"
	if idx.Unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)",
		kind, querysql.Quote(name), querysql.Quote(d.Table()), quoteList(idx.Fields))
}

// foreignKeys collects the foreign keys of every holding model. A key
// declared from both ends (MASTER on one side, DETAIL on the other) yields
// one clause; the first declaration with cascade actions wins.
func foreignKeys(g *graph.Graph) map[string][]foreignKey {
	out := make(map[string][]foreignKey)
	tables := make(map[string]string)
	for _, d := range g.Models() {
		tables[d.Name()] = d.Table()
	}

	add := func(holder string, fk foreignKey) {
		for i, existing := range out[holder] {
			if existing.column == fk.column && existing.refTable == fk.refTable && existing.refColumn == fk.refColumn {
				if existing.onDelete == ir.ActionNone && existing.onUpdate == ir.ActionNone {
					out[holder][i] = fk
				}
				return
			}
		}
		out[holder] = append(out[holder], fk)
	}

	for _, d := range g.Models() {
		for _, rel := range d.Relations() {
			if rel.Virtual {
				continue
			}
			switch {
			case rel.Type == ir.RelationManyToMany:
				add(rel.Through, foreignKey{
					column:    rel.ForeignKey,
					refTable:  tables[rel.Source],
					refColumn: rel.SourceKey,
					onDelete:  rel.OnDelete,
					onUpdate:  rel.OnUpdate,
				})
				add(rel.Through, foreignKey{
					column:    rel.OtherKey,
					refTable:  tables[rel.Target],
					refColumn: rel.TargetKey,
				})
			case rel.Type.SourceHoldsKey():
				add(rel.Source, foreignKey{
					column:    rel.ForeignKey,
					refTable:  tables[rel.Target],
					refColumn: rel.TargetKey,
					onDelete:  rel.OnDelete,
					onUpdate:  rel.OnUpdate,
				})
			default:
				add(rel.Target, foreignKey{
					column:    rel.ForeignKey,
					refTable:  tables[rel.Source],
					refColumn: rel.SourceKey,
					onDelete:  rel.OnDelete,
					onUpdate:  rel.OnUpdate,
				})
			}
		}
	}
	return out
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = querysql.Quote(n)
	}
	return strings.Join(quoted, ", ")
}
