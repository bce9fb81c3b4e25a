// Package migrations embeds the schema migration SQL files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
