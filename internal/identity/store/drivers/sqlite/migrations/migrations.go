// Package migrations embeds the SQL schema migration files so they can be
// applied from the compiled binary via golang-migrate's iofs source.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
