package database

import (
	"errors"
	"fmt"
)

// ErrPoolTimeout is returned by Acquire when no session frees up within the
// configured wait. It is a request-level failure, not fatal to the process.
var ErrPoolTimeout = errors.New("database: timed out waiting for a free connection")

// ConfigError reports invalid or contradictory backend configuration. It is
// surfaced before any connection attempt.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "database config: " + e.Reason
}

// ConnectionError reports a backend that stayed unreachable after bounded
// retries. During startup it is fatal; during steady-state acquire it fails
// only the calling operation.
type ConnectionError struct {
	Kind Kind
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database: %s backend unreachable: %v", e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MigrationError reports a schema step that failed to apply. The step's
// transaction has been rolled back and the persisted version is unchanged;
// startup must not proceed past it.
type MigrationError struct {
	Version int
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("database: migration step %d failed: %v", e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }
