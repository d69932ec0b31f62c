// Package bridgedb holds all the migrations for the bridge operator/canceler
// database.
package bridgedb

import "github.com/uptrace/bun/migrate"

// Migrations collects every registered up/down pair in this package. Each
// file's init() registers its own step against this shared instance.
var Migrations = migrate.NewMigrations()
