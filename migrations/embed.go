// Package migrations embeds the SQL schema migrations
package migrations

import "embed"

// Postgres holds the postgres migrations under the postgres/ directory
//
//go:embed postgres/*.sql
var Postgres embed.FS
