// Package store provides the SQLite storage binding for relsync models.
//
// A Store owns one database handle and one relation graph. It derives the
// DDL for every model from the graph (tables, foreign keys with their
// cascade actions, unique indexes) and hands out a binding.Table per model.
//
// # Reads
//
// A read executes the root select of a plan and then preloads includes
// level by level: one IN query per include node, never one per parent
// row. Related rows are attached under their alias, as a list for to-many
// relations and as a row or nil for to-one relations.
//
// # Writes
//
// Writes run inside the transaction supplied by the caller. Constraint
// violations come back as *binding.ConstraintError so callers can turn
// them into validation errors.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The schema fingerprint from ir.SchemaVersion is recorded in
// PRAGMA user_version after a migration.
package store
