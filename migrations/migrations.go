// Package migrations embeds the catalog schema for each supported driver.
package migrations

import "embed"

// FS holds sqlite/*.sql and postgres/*.sql, bundled at compile time so the
// binary carries its own schema.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
