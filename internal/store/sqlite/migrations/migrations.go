// Package migrations embeds the SQL schema migrations applied on store open.
package migrations

import "embed"

// Migrations holds the numbered up/down migration files.
//
//go:embed *.sql
var Migrations embed.FS
