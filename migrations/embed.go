// Package migrations embeds the SQL schema migrations applied by
// database.RunMigrations.
package migrations

import "embed"

// FS holds the NNN_name.up.sql / NNN_name.down.sql pairs.
//
//go:embed *.sql
var FS embed.FS
