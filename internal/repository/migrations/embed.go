// Package migrations embeds the PostgreSQL schema migrations.
package migrations

import "embed"

// FS contains goose SQL migrations.
//
//go:embed *.sql
var FS embed.FS
