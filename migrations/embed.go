// Package migrations holds the versioned SQL schema applied by cmd/migrate.
package migrations

import "embed"

// Postgres contains the numbered postgres migrations, e.g. postgres/001_billing.sql
//
//go:embed postgres/*.sql
var Postgres embed.FS
