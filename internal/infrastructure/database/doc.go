// Package database provides the SQLite connection used by the pre-heat
// service and applies its schema migrations.
//
// The database is opened with WAL mode and a busy timeout, limited to a
// single connection (SQLite has one writer), and its file is restricted to
// mode 0600. All queries use parameterised statements.
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
// Migrations are additive and ship as YYYYMMDD_HHMMSS_name.up.sql and
// .down.sql pairs in the top-level migrations package.
package database
