// Package sqlite implements the task service key-value store and cache
// storage on a single SQLite database.
//
// Partitions and cache generations are rows, not tables, so opening a new
// partition never requires a schema change. All access goes through one
// connection, which serializes transactions and makes Update atomic per key.
package sqlite
