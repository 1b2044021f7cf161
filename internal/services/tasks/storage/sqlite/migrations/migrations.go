// Package migrations embeds the SQLite schema for the task service store.
package migrations

import "embed"

// FS holds the ordered SQL migration files.
//
//go:embed *.sql
var FS embed.FS
