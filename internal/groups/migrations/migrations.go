// Package migrations embeds the PostgreSQL schema for sync groups.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
