package adapter

import (
	"context"
	"database/sql"

	"github.com/sqlgate/sqlgate/pkg/dbcapabilities"
)

// Querier is the query surface a Driver receives for its own lookups
// (last-insert-id, table listings). Both *sql.Conn and *sql.DB satisfy it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Driver is the enumerated capability set each database engine implements.
// Each engine (PostgreSQL, MySQL, SQL Server, ...) provides exactly one
// Driver; the Adapter holds the shared connection lifecycle, transaction
// state machine and SQL building on top of it.
type Driver interface {
	// Type returns the canonical database type identifier.
	Type() dbcapabilities.DatabaseID

	// Capabilities returns the capability metadata for this database type.
	Capabilities() dbcapabilities.Capability

	// Open opens the engine's database handle for the given configuration.
	// It must not ping; the Adapter verifies liveness itself.
	Open(cfg Config) (*sql.DB, error)

	// Rebind rewrites ? placeholders into the engine's native placeholder
	// dialect. Engines that use ? natively return the query unchanged.
	Rebind(query string) string

	// QuoteString renders a string as a native SQL value literal.
	QuoteString(s string) string

	// LastInsertID reports the identifier generated by the most recent
	// insert on this session. Table and column narrow the lookup on engines
	// that track sequences per column; others ignore them.
	LastInsertID(ctx context.Context, q Querier, table, column string) (int64, error)

	// ListTables returns the names of the user tables visible on the session.
	ListTables(ctx context.Context, q Querier) ([]string, error)

	// BeginSQL returns the statement starting a transaction in the engine's
	// dialect (BEGIN TRANSACTION on T-SQL, BEGIN elsewhere).
	BeginSQL() string

	// CommitSQL returns the statement committing the transaction.
	CommitSQL() string

	// RollbackSQL returns the statement rolling back the whole transaction.
	RollbackSQL() string

	// SavepointSQL returns the statement establishing a savepoint with the
	// given (already quoted) name.
	SavepointSQL(name string) string

	// ReleaseSavepointSQL returns the statement releasing a savepoint, or ""
	// when the engine's dialect has no release form (the Adapter then simply
	// discards the savepoint).
	ReleaseSavepointSQL(name string) string

	// RollbackSavepointSQL returns the statement rolling back to a savepoint.
	RollbackSavepointSQL(name string) string
}
