// Package database opens the bridge's SQLite file and applies its schema
// migrations.
//
// The only consumer is the feedback history (control_history table); the
// schema lives in the top-level migrations package, which embeds the SQL
// files and registers them here at init.
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive; each pair of YYYYMMDD_HHMMSS_name.up.sql and
// .down.sql files is applied in its own transaction.
package database
