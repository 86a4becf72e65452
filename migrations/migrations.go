// Package migrations embeds the SQL migrations of the postgres persistence backend.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
