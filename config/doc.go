// Package config resolves quietroom configuration from config files,
// environment variables, and CLI flags.
//
// Precedence is flags > environment > config files > defaults. Besides the
// QUIETROOM_-prefixed variables, the package honors the legacy deployment
// contract directly:
//
//	USE_POSTGRESQL  selects the client-server backend when true
//	DATABASE_URL    full connection string, takes precedence over PG* fields
//	PGHOST, PGPORT, PGDATABASE, PGUSER, PGPASSWORD
//
// DatabaseSettings.Backend turns the raw settings into the validated
// database.Config the database layer consumes; contradictory settings fail
// there with database.ConfigError before any connection attempt.
package config
