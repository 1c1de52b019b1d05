// Package migrations compiles the service's SQL schema migrations into the
// binary. Importing it for side effects registers the embedded files with
// the database package:
//
//	import _ "github.com/raunerlucas/app-gestao-projetos/migrations"
//
// Files follow the VERSION_description.up.sql / .down.sql naming scheme that
// database.Migrate expects.
package migrations

import (
	"embed"

	"github.com/raunerlucas/app-gestao-projetos/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
