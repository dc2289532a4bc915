// Package postgres implements the sqlgate driver for PostgreSQL on top of
// the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sqlgate/sqlgate/pkg/adapter"
	"github.com/sqlgate/sqlgate/pkg/dbcapabilities"
)

// Driver implements the adapter.Driver interface for PostgreSQL.
type Driver struct{}

// NewDriver creates a new PostgreSQL driver.
func NewDriver() adapter.Driver {
	return &Driver{}
}

// Type returns the database type identifier.
func (d *Driver) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.PostgreSQL
}

// Capabilities returns the capabilities metadata for PostgreSQL.
func (d *Driver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.PostgreSQL)
}

// Open opens a PostgreSQL handle for the given configuration. Credentials
// and options from the config are folded into the DSN.
func (d *Driver) Open(cfg adapter.Config) (*sql.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}
	return sql.Open("pgx", dsn)
}

// buildDSN merges config credentials and driver options into the URL-style DSN.
func buildDSN(cfg adapter.Config) (string, error) {
	u, err := url.Parse(cfg.DSN)
	if err != nil {
		return "", fmt.Errorf("invalid dsn: %w", err)
	}
	u.Scheme = "postgres"

	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}

	q := u.Query()
	for k, v := range cfg.Options {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Rebind rewrites ? placeholders into PostgreSQL's $1..$n form, leaving
// string literals, quoted identifiers and ?? escapes untouched.
func (d *Driver) Rebind(query string) string {
	var out strings.Builder
	out.Grow(len(query) + 8)

	n := 0
	var inString, inIdent bool
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'' && !inIdent:
			inString = !inString
			out.WriteByte(c)
		case c == '"' && !inString:
			inIdent = !inIdent
			out.WriteByte(c)
		case c == '?' && !inString && !inIdent:
			if i+1 < len(query) && query[i+1] == '?' {
				// ?? escapes a literal question mark.
				out.WriteByte('?')
				i++
				continue
			}
			n++
			fmt.Fprintf(&out, "$%d", n)
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// QuoteString renders a string as a PostgreSQL value literal.
func (d *Driver) QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// LastInsertID reports the sequence value generated by the most recent
// insert. With a table it consults the table's serial sequence; without one
// it falls back to lastval().
func (d *Driver) LastInsertID(ctx context.Context, q adapter.Querier, table, column string) (int64, error) {
	var id int64
	if table == "" {
		err := q.QueryRowContext(ctx, "SELECT lastval()").Scan(&id)
		return id, err
	}
	if column == "" {
		column = "id"
	}
	err := q.QueryRowContext(ctx,
		"SELECT currval(pg_get_serial_sequence($1, $2))", table, column).Scan(&id)
	return id, err
}

// ListTables returns the user tables visible on the session.
func (d *Driver) ListTables(ctx context.Context, q adapter.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT tablename
		FROM pg_catalog.pg_tables
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY tablename
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// BeginSQL returns the statement starting a transaction.
func (d *Driver) BeginSQL() string {
	return "BEGIN"
}

// CommitSQL returns the statement committing the transaction.
func (d *Driver) CommitSQL() string {
	return "COMMIT"
}

// RollbackSQL returns the statement rolling back the transaction.
func (d *Driver) RollbackSQL() string {
	return "ROLLBACK"
}

// SavepointSQL returns the statement establishing a savepoint.
func (d *Driver) SavepointSQL(name string) string {
	return "SAVEPOINT " + name
}

// ReleaseSavepointSQL returns the statement releasing a savepoint.
func (d *Driver) ReleaseSavepointSQL(name string) string {
	return "RELEASE SAVEPOINT " + name
}

// RollbackSavepointSQL returns the statement rolling back to a savepoint.
func (d *Driver) RollbackSavepointSQL(name string) string {
	return "ROLLBACK TO SAVEPOINT " + name
}
