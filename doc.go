// Package quietroom contains the domain types and storage contracts for the
// quietroom confession service.
//
// The service accepts anonymous submissions, routes them through moderation,
// and publishes approved posts with threaded comments. Everything it persists
// goes through the database abstraction in the database subpackage, which runs
// unmodified against either an embedded SQLite file or a PostgreSQL server.
//
// # Layout
//
//   - quietroom (this package): domain types, sentinel errors, and the
//     Connection contract every subsystem consumes
//   - config: environment and file based configuration resolution
//   - database: backend-agnostic connection pool, placeholder translation,
//     and schema migrations
//   - database/postgres, database/sqlite: backend session implementations
//   - store: persistence for users, posts, and comments on top of Connection
//   - cmd/quietroom: operational CLI (migrate, status, init)
package quietroom
