// Package database hides the storage backend choice from every other
// subsystem. It runs unmodified against either an embedded single-file
// SQLite store or a remote PostgreSQL server, selected once at process
// start.
//
// Four pieces make up the layer:
//
//   - Translate rewrites canonical `?` query markers into the syntax the
//     selected backend requires
//   - the connection pool hands out exclusive session leases with liveness
//     probes and bounded reconnects
//   - Migrator applies the ordered schema history exactly once across the
//     whole process fleet, guarded by a cross-process lock
//   - Conn exposes the quietroom.Connection contract collaborators consume
//
// # Usage
//
//	cfg := database.Config{Kind: database.KindEmbedded, Path: "quietroom.db"}
//
//	db, err := database.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Close(ctx)
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// After Migrate returns, collaborators issue canonical queries through
// db.Execute, db.Query, and db.WithinTransaction; they never see backend
// marker syntax or backend-specific error classes beyond the wrapped
// originals.
//
// # Subpackages
//
//   - database/driver: the contract backends implement
//   - database/postgres: client-server backend over pgx
//   - database/sqlite: embedded backend over modernc.org/sqlite
package database
