// Package storage defines the persistence contracts of the task service: a
// partitioned key-value store for records and UI state, and a cache storage
// holding named generations of response snapshots.
package storage
