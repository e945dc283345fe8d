// Package database provides SQLite connectivity for the Leafcore state
// database.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Forward-only schema migrations from an embedded filesystem
//   - Connection lifecycle and health checks
//
// The database holds actuator transition history; settings live in JSON
// files managed by the settings package, not here.
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows the API's history reads during transition inserts
//   - Busy timeout prevents lock contention errors
//   - Single-connection pool matches SQLite's one-writer model
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "leafcore.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Migrations are additive-only and forward-only. The database lives on
// an appliance with no operator at a console, so there is no down
// direction; a bad migration is fixed by shipping the next one.
package database
