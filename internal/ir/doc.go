// Package ir provides the shared value types for relsync.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the model declarations,
// queries, mutate requests, and sync results free of circular dependencies.
//
// Key design constraints:
//   - ModelSpec values are declarations; the derived relation graph lives in
//     internal/graph and is immutable once built
//   - Rows are plain maps keyed by attribute name or relation alias
//   - Configuration problems are returned as *ConfigError; business errors
//     travel as ValidationError values inside SyncResult
//   - JSON tags use the camelCase wire shape of queries and mutate requests
package ir
