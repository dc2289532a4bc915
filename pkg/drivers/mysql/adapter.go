// Package mysql implements the sqlgate driver for MySQL and MariaDB on top
// of the go-sql-driver/mysql database/sql driver.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/sqlgate/sqlgate/pkg/adapter"
	"github.com/sqlgate/sqlgate/pkg/dbcapabilities"
)

// Driver implements the adapter.Driver interface for MySQL. MariaDB shares
// the implementation under its own type identifier.
type Driver struct {
	id dbcapabilities.DatabaseID
}

// NewDriver creates a new MySQL driver.
func NewDriver() adapter.Driver {
	return &Driver{id: dbcapabilities.MySQL}
}

// NewMariaDBDriver creates the MariaDB variant of the driver.
func NewMariaDBDriver() adapter.Driver {
	return &Driver{id: dbcapabilities.MariaDB}
}

// Type returns the database type identifier.
func (d *Driver) Type() dbcapabilities.DatabaseID {
	return d.id
}

// Capabilities returns the capabilities metadata for the engine.
func (d *Driver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(d.id)
}

// Open opens a MySQL handle for the given configuration. URL-style DSNs are
// converted to the driver's native user:pass@tcp(host:port)/db form; native
// DSNs pass through unchanged.
func (d *Driver) Open(cfg adapter.Config) (*sql.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}
	return sql.Open("mysql", dsn)
}

// buildDSN converts a URL-style DSN into the native go-sql-driver form,
// folding in config credentials and options.
func buildDSN(cfg adapter.Config) (string, error) {
	if !strings.Contains(cfg.DSN, "://") {
		return cfg.DSN, nil
	}

	u, err := url.Parse(cfg.DSN)
	if err != nil {
		return "", fmt.Errorf("invalid dsn: %w", err)
	}

	user := cfg.Username
	pass := cfg.Password
	if user == "" && u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}

	host := u.Host
	if u.Port() == "" {
		host = u.Hostname() + ":3306"
	}

	var dsn strings.Builder
	if user != "" {
		dsn.WriteString(user)
		if pass != "" {
			dsn.WriteString(":" + pass)
		}
		dsn.WriteString("@")
	}
	fmt.Fprintf(&dsn, "tcp(%s)/%s", host, strings.Trim(u.Path, "/"))

	params := make(map[string]string)
	for k, v := range u.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	for k, v := range cfg.Options {
		params[k] = v
	}
	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sep := "?"
		for _, k := range keys {
			fmt.Fprintf(&dsn, "%s%s=%s", sep, k, url.QueryEscape(params[k]))
			sep = "&"
		}
	}
	return dsn.String(), nil
}

// Rebind returns the query unchanged: MySQL uses ? placeholders natively.
func (d *Driver) Rebind(query string) string {
	return query
}

// QuoteString renders a string as a MySQL value literal.
func (d *Driver) QuoteString(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		"\x00", `\0`,
		"\n", `\n`,
		"\r", `\r`,
		"\x1a", `\Z`,
	)
	return "'" + replacer.Replace(s) + "'"
}

// LastInsertID reports the identifier generated by the most recent insert
// on this session. MySQL tracks it per connection; table and column are
// ignored.
func (d *Driver) LastInsertID(ctx context.Context, q adapter.Querier, table, column string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT LAST_INSERT_ID()").Scan(&id)
	return id, err
}

// ListTables returns the tables in the current database.
func (d *Driver) ListTables(ctx context.Context, q adapter.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SHOW TABLES")
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
