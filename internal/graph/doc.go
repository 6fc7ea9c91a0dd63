// Package graph builds the immutable relation graph of a schema.
//
// A Graph is constructed once at boot from compiled ir.ModelSpec values.
// Construction applies naming defaults (table names, relation aliases and
// foreign keys derived with go-openapi/inflect), resolves which model holds
// each foreign key, and fails fast on malformed declarations. After New
// returns, the graph and every Descriptor in it are read-only and safe for
// concurrent use.
//
// A Descriptor is the per-model view used by the resolver and synchronizer:
// primary keys, relations by alias, and the allow-lists that silently drop
// attributes a caller may not read or write.
package graph
