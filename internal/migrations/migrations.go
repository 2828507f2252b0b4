// Package migrations embeds the Postgres schema applied by cmd/migrate_apply.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
