// Package queryir provides the read plan and write statement intermediate
// representation (IR) for relsync.
//
// The resolver translates a declarative ir.Query into a read plan expressed
// in this package; the synchronizer expresses row writes as statements. The
// SQL backend in internal/querysql compiles both to parameterized SQL.
//
//	[ir.Query] → [resolver] → [queryir.Plan] → [querysql] → SQLite
//	[ir.MutateRequest] → [synchronizer] → [queryir.Insert/Update/Delete]
//
// SEALED INTERFACES:
//
// Query, Statement and Predicate are sealed interfaces using the marker
// method pattern. Only types in this package can implement them, which keeps
// backend compilers exhaustive.
//
// FIELD SCOPING:
//
// A Field with an empty Source refers to the table the predicate is
// evaluated against: the root table of a Select, or the inner table of an
// Exists. A non-empty Source names a joined table alias.
//
// READ PLANS:
//
// A Plan is the root Select (filters, order joins, pagination) plus a tree
// of Include nodes. Includes are fetched after the root rows, one batched
// query per include node, and attached to their parent rows under the
// relation alias.
package queryir
