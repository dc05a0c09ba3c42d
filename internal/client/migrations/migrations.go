// Package migrations embeds the SQL migrations for the client's local
// database.
package migrations

import "embed"

//go:embed sql/*.sql
var Migrations embed.FS
