// Package database provides SQLite connectivity for the project management service.
//
// It wraps database/sql with the settings the service needs: WAL journaling
// for concurrent reads, foreign-key enforcement, a busy timeout to ride out
// lock contention, and 0600 file permissions on the database file. Schema
// changes live as embedded .up.sql/.down.sql pairs applied by Migrate.
//
// Typical startup sequence:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are registered by the migrations package through MigrationsFS;
// importing it for side effects is enough:
//
//	import _ "github.com/raunerlucas/app-gestao-projetos/migrations"
//
// All tables use STRICT mode and all queries in the repository packages use
// parameterised statements.
package database
