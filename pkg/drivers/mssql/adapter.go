// Package mssql implements the sqlgate driver for Microsoft SQL Server on
// top of the go-mssqldb database/sql driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/sqlgate/sqlgate/pkg/adapter"
	"github.com/sqlgate/sqlgate/pkg/dbcapabilities"
)

// Driver implements the adapter.Driver interface for SQL Server.
type Driver struct{}

// NewDriver creates a new SQL Server driver.
func NewDriver() adapter.Driver {
	return &Driver{}
}

// Type returns the database type identifier.
func (d *Driver) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.SQLServer
}

// Capabilities returns the capabilities metadata for SQL Server.
func (d *Driver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.SQLServer)
}

// Open opens a SQL Server handle for the given configuration. The mssql://
// scheme is normalized to sqlserver:// and a database path segment becomes
// the database query parameter the driver expects.
func (d *Driver) Open(cfg adapter.Config) (*sql.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}
	return sql.Open("sqlserver", dsn)
}

// buildDSN normalizes the DSN for go-mssqldb, folding in config credentials
// and options.
func buildDSN(cfg adapter.Config) (string, error) {
	u, err := url.Parse(cfg.DSN)
	if err != nil {
		return "", fmt.Errorf("invalid dsn: %w", err)
	}
	u.Scheme = "sqlserver"

	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}

	q := u.Query()
	if db := strings.Trim(u.Path, "/"); db != "" {
		q.Set("database", db)
		u.Path = ""
	}
	for k, v := range cfg.Options {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Rebind rewrites ? placeholders into SQL Server's @p1..@pn form, leaving
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
			fmt.Fprintf(&out, "@p%d", n)
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// QuoteString renders a string as a T-SQL value literal.
func (d *Driver) QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// LastInsertID reports the identity value generated by the most recent
// insert on this session. Table and column are ignored; SQL Server tracks
// identity per session.
func (d *Driver) LastInsertID(ctx context.Context, q adapter.Querier, table, column string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT CONVERT(BIGINT, ISNULL(@@IDENTITY, 0))").Scan(&id)
	return id, err
}

// ListTables returns the user tables in the current database.
func (d *Driver) ListTables(ctx context.Context, q adapter.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM sys.tables ORDER BY name")
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

// BeginSQL returns the T-SQL statement starting a transaction. A bare BEGIN
// opens a statement block in T-SQL, so the TRANSACTION keyword is required.
func (d *Driver) BeginSQL() string {
	return "BEGIN TRANSACTION"
}

// CommitSQL returns the T-SQL statement committing the transaction.
func (d *Driver) CommitSQL() string {
	return "COMMIT TRANSACTION"
}

// RollbackSQL returns the T-SQL statement rolling back the transaction.
func (d *Driver) RollbackSQL() string {
	return "ROLLBACK TRANSACTION"
}

// SavepointSQL returns the T-SQL statement establishing a savepoint.
func (d *Driver) SavepointSQL(name string) string {
	return "SAVE TRANSACTION " + name
}

// ReleaseSavepointSQL returns "": T-SQL has no release form, a savepoint is
// simply discarded when the adapter pops it.
func (d *Driver) ReleaseSavepointSQL(name string) string {
	return ""
}

// RollbackSavepointSQL returns the T-SQL statement rolling back to a savepoint.
func (d *Driver) RollbackSavepointSQL(name string) string {
	return "ROLLBACK TRANSACTION " + name
}
