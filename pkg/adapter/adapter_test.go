package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlgate/sqlgate/pkg/dbcapabilities"
	"github.com/sqlgate/sqlgate/pkg/logger"
)

// fakeDriver implements Driver for tests. The savepoint dialect is the
// standard one; savepoint support is configurable.
type fakeDriver struct {
	savepoints bool
}

func (d *fakeDriver) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.PostgreSQL
}

func (d *fakeDriver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.Capability{
		Name:               "Fake",
		ID:                 dbcapabilities.PostgreSQL,
		IdentifierQuote:    `"`,
		SupportsSavepoints: d.savepoints,
	}
}

func (d *fakeDriver) Open(cfg Config) (*sql.DB, error) {
	return nil, errors.New("fake driver cannot open connections")
}

func (d *fakeDriver) Rebind(query string) string { return query }

func (d *fakeDriver) QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *fakeDriver) LastInsertID(ctx context.Context, q Querier, table, column string) (int64, error) {
	return 42, nil
}

func (d *fakeDriver) ListTables(ctx context.Context, q Querier) ([]string, error) {
	return []string{"users", "orders"}, nil
}

func (d *fakeDriver) BeginSQL() string {
	return "BEGIN"
}

func (d *fakeDriver) CommitSQL() string {
	return "COMMIT"
}

func (d *fakeDriver) RollbackSQL() string {
	return "ROLLBACK"
}

func (d *fakeDriver) SavepointSQL(name string) string {
	return "SAVEPOINT " + name
}

func (d *fakeDriver) ReleaseSavepointSQL(name string) string {
	return "RELEASE SAVEPOINT " + name
}

func (d *fakeDriver) RollbackSavepointSQL(name string) string {
	return "ROLLBACK TO SAVEPOINT " + name
}

// tsqlDriver overrides the transaction dialect with the T-SQL forms, where a
// bare BEGIN opens a statement block rather than a transaction.
type tsqlDriver struct {
	fakeDriver
}

func (d *tsqlDriver) BeginSQL() string {
	return "BEGIN TRANSACTION"
}

func (d *tsqlDriver) CommitSQL() string {
	return "COMMIT TRANSACTION"
}

func (d *tsqlDriver) RollbackSQL() string {
	return "ROLLBACK TRANSACTION"
}

// fakeResult implements sql.Result.
type fakeResult struct{ affected int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

// fakeSession records every statement executed on it.
type fakeSession struct {
	executed []string
	args     [][]interface{}
	execErr  error
	closed   bool
}

func (s *fakeSession) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if s.execErr != nil {
		return nil, s.execErr
	}
	s.executed = append(s.executed, query)
	s.args = append(s.args, args)
	return fakeResult{affected: 1}, nil
}

func (s *fakeSession) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("fake session cannot produce rows")
}

func (s *fakeSession) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (s *fakeSession) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return nil, errors.New("fake session cannot prepare")
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func quietLogger() *logger.Logger {
	l := logger.New("test")
	l.DisableConsoleOutput()
	return l
}

// newTestAdapter wires an adapter directly onto a fake session, bypassing
// the real connect path.
func newTestAdapter(t *testing.T, savepoints bool) (*Adapter, *fakeSession) {
	t.Helper()
	sess := &fakeSession{}
	a, err := NewAdapter(&fakeDriver{savepoints: savepoints}, Config{DSN: "postgres://localhost/testdb"}, quietLogger())
	require.NoError(t, err)
	a.sess = sess
	return a, sess
}

func TestNewAdapterRequiresDSN(t *testing.T) {
	_, err := NewAdapter(&fakeDriver{}, Config{}, quietLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestBeginCommitNesting(t *testing.T) {
	const n = 3
	a, sess := newTestAdapter(t, true)
	ctx := context.Background()

	for i := 0; i < n; i++ {
		require.NoError(t, a.Begin(ctx))
	}
	assert.True(t, a.InTransaction())

	for i := 0; i < n; i++ {
		done, err := a.Commit(ctx)
		require.NoError(t, err)
		assert.True(t, done)
	}
	assert.False(t, a.InTransaction())

	var releases, commits int
	for _, q := range sess.executed {
		switch {
		case strings.HasPrefix(q, "RELEASE SAVEPOINT"):
			releases++
			assert.Equal(t, 0, commits, "all releases must precede the commit")
		case q == "COMMIT":
			commits++
		}
	}
	assert.Equal(t, n-1, releases)
	assert.Equal(t, 1, commits)
}

func TestBeginRollbackNesting(t *testing.T) {
	const n = 4
	a, sess := newTestAdapter(t, true)
	ctx := context.Background()

	for i := 0; i < n; i++ {
		require.NoError(t, a.Begin(ctx))
	}
	for i := 0; i < n; i++ {
		done, err := a.Rollback(ctx)
		require.NoError(t, err)
		assert.True(t, done)
	}
	assert.False(t, a.InTransaction())

	var toSavepoint, full int
	for _, q := range sess.executed {
		switch {
		case strings.HasPrefix(q, "ROLLBACK TO SAVEPOINT"):
			toSavepoint++
			assert.Equal(t, 0, full, "savepoint rollbacks must precede the full rollback")
		case q == "ROLLBACK":
			full++
		}
	}
	assert.Equal(t, n-1, toSavepoint)
	assert.Equal(t, 1, full)
}

func TestTransactionStatementsUseDriverDialect(t *testing.T) {
	sess := &fakeSession{}
	a, err := NewAdapter(&tsqlDriver{fakeDriver{savepoints: true}},
		Config{DSN: "sqlserver://localhost/testdb"}, quietLogger())
	require.NoError(t, err)
	a.sess = sess
	ctx := context.Background()

	require.NoError(t, a.Begin(ctx))
	done, err := a.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, a.Begin(ctx))
	done, err = a.Rollback(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	assert.Equal(t, []string{
		"BEGIN TRANSACTION",
		"COMMIT TRANSACTION",
		"BEGIN TRANSACTION",
		"ROLLBACK TRANSACTION",
	}, sess.executed)
}

func TestCommitOutsideTransactionIsNoop(t *testing.T) {
	a, sess := newTestAdapter(t, true)

	done, err := a.Commit(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, sess.executed)

	done, err = a.Rollback(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, sess.executed)
}

func TestNestedBeginWithoutSavepointSupport(t *testing.T) {
	a, _ := newTestAdapter(t, false)
	ctx := context.Background()

	require.NoError(t, a.Begin(ctx))
	err := a.Begin(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOperationNotSupported))
	assert.True(t, a.InTransaction())
}

func TestSavepointNamesAreUnique(t *testing.T) {
	a, sess := newTestAdapter(t, true)
	ctx := context.Background()

	require.NoError(t, a.Begin(ctx))
	for i := 0; i < 5; i++ {
		require.NoError(t, a.Begin(ctx))
	}

	seen := make(map[string]bool)
	for _, q := range sess.executed {
		if strings.HasPrefix(q, "SAVEPOINT ") {
			assert.False(t, seen[q], "duplicate savepoint statement %q", q)
			seen[q] = true
		}
	}
	assert.Len(t, seen, 5)
}

func TestRollbackAllIsCapped(t *testing.T) {
	a, sess := newTestAdapter(t, true)
	ctx := context.Background()

	// Nest deeper than the cap.
	require.NoError(t, a.Begin(ctx))
	for i := 0; i < 12; i++ {
		require.NoError(t, a.Begin(ctx))
	}
	sess.executed = nil

	a.RollbackAll(ctx)

	var rollbacks int
	for _, q := range sess.executed {
		if strings.HasPrefix(q, "ROLLBACK") {
			rollbacks++
		}
	}
	assert.Equal(t, maxRollbackAll, rollbacks)
	assert.True(t, a.InTransaction(), "nesting deeper than the cap is abandoned, not unwound")
}

func TestDisconnectRollsBackAndClearsState(t *testing.T) {
	a, sess := newTestAdapter(t, true)
	ctx := context.Background()

	require.NoError(t, a.Begin(ctx))
	require.NoError(t, a.Begin(ctx))
	require.NoError(t, a.Disconnect(ctx))

	assert.False(t, a.IsConnected())
	assert.False(t, a.InTransaction())
	assert.True(t, sess.closed)

	var rollbacks int
	for _, q := range sess.executed {
		if strings.HasPrefix(q, "ROLLBACK") {
			rollbacks++
		}
	}
	assert.Equal(t, 2, rollbacks)

	// Idempotent.
	require.NoError(t, a.Disconnect(ctx))
	require.NoError(t, a.Close())
}

func TestDisconnectClearsStateEvenWhenCapIsHit(t *testing.T) {
	a, _ := newTestAdapter(t, true)
	ctx := context.Background()

	require.NoError(t, a.Begin(ctx))
	for i := 0; i < 15; i++ {
		require.NoError(t, a.Begin(ctx))
	}

	require.NoError(t, a.Disconnect(ctx))
	assert.False(t, a.IsConnected())
	assert.False(t, a.InTransaction())
}

func TestInsertExcludesRawFromParams(t *testing.T) {
	a, sess := newTestAdapter(t, true)

	affected, err := a.Insert(context.Background(), "t", map[string]interface{}{
		"x": 1,
		"y": Raw("NOW()"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	require.Len(t, sess.executed, 1)
	assert.Equal(t, `INSERT INTO "t" ("x", "y") VALUES (?, NOW())`, sess.executed[0])
	assert.Equal(t, []interface{}{1}, sess.args[0])
}

func TestUpdateAppendsWhereParams(t *testing.T) {
	a, sess := newTestAdapter(t, true)

	_, err := a.Update(context.Background(), "t",
		map[string]interface{}{"name": "x", "seen": Raw("NOW()")},
		"id = ?", 7)
	require.NoError(t, err)

	require.Len(t, sess.executed, 1)
	assert.Equal(t, `UPDATE "t" SET "name" = ?, "seen" = NOW() WHERE id = ?`, sess.executed[0])
	assert.Equal(t, []interface{}{"x", 7}, sess.args[0])
}

func TestDeleteWithoutWhere(t *testing.T) {
	a, sess := newTestAdapter(t, true)

	_, err := a.Delete(context.Background(), "t", "")
	require.NoError(t, err)
	require.Len(t, sess.executed, 1)
	assert.Equal(t, `DELETE FROM "t"`, sess.executed[0])
}

func TestExecFailureIsWrappedWithContext(t *testing.T) {
	a, sess := newTestAdapter(t, true)
	sess.execErr = errors.New("deadlock detected")

	_, err := a.Exec(context.Background(), "DELETE FROM t")
	require.Error(t, err)

	var dbErr *DatabaseError
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "DELETE FROM t", dbErr.Context["sql"])
	assert.Contains(t, err.Error(), "deadlock detected")
}

func TestLastInsertIDAndTables(t *testing.T) {
	a, _ := newTestAdapter(t, true)
	ctx := context.Background()

	id, err := a.LastInsertID(ctx, "users", "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	tables, err := a.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, tables)

	ok, err := a.HasTable(ctx, "users")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.HasTable(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNormalizeParams(t *testing.T) {
	tests := []struct {
		name     string
		in       []interface{}
		expected []interface{}
	}{
		{"variadic", []interface{}{1, "a"}, []interface{}{1, "a"}},
		{"single scalar", []interface{}{1}, []interface{}{1}},
		{"explicit list", []interface{}{[]interface{}{1, 2, 3}}, []interface{}{1, 2, 3}},
		{"empty", nil, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, normalizeParams(test.in))
		})
	}
}

func TestConnectFailureLeavesAdapterDisconnected(t *testing.T) {
	a, err := NewAdapter(&fakeDriver{savepoints: true}, Config{DSN: "postgres://localhost:5432/app"}, quietLogger())
	require.NoError(t, err)

	err = a.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionFailed))

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "localhost", connErr.Host)
	assert.Equal(t, 5432, connErr.Port)
	assert.False(t, a.IsConnected())
}

func TestAdapterIdentity(t *testing.T) {
	a, _ := newTestAdapter(t, true)
	b, _ := newTestAdapter(t, true)

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, dbcapabilities.PostgreSQL, a.Type())
	assert.Equal(t, fmt.Sprint(a.Raw()), "<nil>")
}
