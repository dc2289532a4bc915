package adapter

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/sqlgate/sqlgate/pkg/dbcapabilities"
	"github.com/sqlgate/sqlgate/pkg/logger"
)

// maxRollbackAll bounds the teardown rollback loop. Nested transactions
// deeper than this are abandoned in favor of releasing the connection.
const maxRollbackAll = 9

// session is the surface of *sql.Conn the adapter drives. Tests substitute
// a recording implementation.
type session interface {
	Querier
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	Close() error
}

// Adapter owns one driver connection and provides transaction and savepoint
// control, identifier/value quoting, and parameterized SQL building on top
// of it. An Adapter is not safe for concurrent use; it assumes a single
// owner, matching request-scoped usage.
type Adapter struct {
	id     string
	cfg    Config
	driver Driver
	logger *logger.Logger

	db   *sql.DB
	sess session

	inTx       bool
	savepoints []string
	spSeq      uint64
}

// NewAdapter creates an adapter for an explicit driver. The configuration is
// validated up front; a missing DSN fails construction.
func NewAdapter(driver Driver, cfg Config, log *logger.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("sqlgate/" + string(driver.Type()))
	}
	cfg.Options = cloneOptions(cfg.Options)
	return &Adapter{
		id:     uuid.NewString(),
		cfg:    cfg,
		driver: driver,
		logger: log,
	}, nil
}

// New creates an adapter, resolving the driver by name or alias through the
// global registry.
func New(name string, cfg Config, log *logger.Logger) (*Adapter, error) {
	driver, err := GetDriverByName(name)
	if err != nil {
		return nil, err
	}
	return NewAdapter(driver, cfg, log)
}

// ID returns the adapter's unique identifier.
func (a *Adapter) ID() string {
	return a.id
}

// Type returns the database type.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return a.driver.Type()
}

// Capabilities returns the capability metadata of the underlying engine.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return a.driver.Capabilities()
}

// Config returns the adapter configuration.
func (a *Adapter) Config() Config {
	return a.cfg
}

// Driver returns the database driver.
func (a *Adapter) Driver() Driver {
	return a.driver
}

// Raw returns the underlying *sql.DB handle, or nil when disconnected. Use
// it only for operations not covered by the adapter surface.
func (a *Adapter) Raw() interface{} {
	return a.db
}

// IsConnected returns whether the adapter holds a live connection.
func (a *Adapter) IsConnected() bool {
	return a.sess != nil
}

// Connect opens the underlying connection. It is idempotent: when already
// connected it returns immediately. On failure the adapter remains
// disconnected and a ConnectionError wrapping the cause is returned.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.sess != nil {
		return nil
	}

	db, err := a.driver.Open(a.cfg)
	if err != nil {
		return a.connectFailed(err)
	}
	// One adapter owns exactly one connection.
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return a.connectFailed(err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return a.connectFailed(err)
	}

	a.db = db
	a.sess = conn
	a.logger.WithFields(map[string]string{"dsn": a.cfg.DSN}).Debug("connected")
	return nil
}

func (a *Adapter) connectFailed(cause error) error {
	host, port := "", 0
	if details, err := dbcapabilities.ParseDSN(a.cfg.DSN); err == nil {
		host, port = details.Host, details.Port
	}
	connErr := NewConnectionError(a.driver.Type(), host, port, cause)
	a.logger.WithFields(map[string]string{"dsn": a.cfg.DSN}).Error(connErr.Error())
	return connErr
}

// ensureConnected lazily opens the connection for operations that need it.
func (a *Adapter) ensureConnected(ctx context.Context) error {
	if a.sess != nil {
		return nil
	}
	return a.Connect(ctx)
}

// Disconnect forcibly rolls back any open transaction, then releases the
// connection. It is idempotent and always leaves the adapter disconnected
// with no transaction state.
func (a *Adapter) Disconnect(ctx context.Context) error {
	if a.sess == nil {
		return nil
	}

	a.RollbackAll(ctx)

	err := a.sess.Close()
	if a.db != nil {
		if cerr := a.db.Close(); err == nil {
			err = cerr
		}
	}
	a.sess = nil
	a.db = nil
	a.inTx = false
	a.savepoints = nil
	a.logger.Debug("disconnected")
	return err
}

// Close implements io.Closer, so scoped teardown can be deferred.
func (a *Adapter) Close() error {
	return a.Disconnect(context.Background())
}

// InTransaction reports whether a transaction is open.
func (a *Adapter) InTransaction() bool {
	return a.inTx
}

// savepointName generates a collision-free savepoint identifier for the
// lifetime of this adapter.
func (a *Adapter) savepointName() string {
	a.spSeq++
	return fmt.Sprintf("sqlgate_sp_%d", a.spSeq)
}

// Begin opens a transaction, or establishes a savepoint when a transaction
// is already open. Nesting requires savepoint support from the engine.
func (a *Adapter) Begin(ctx context.Context) error {
	if err := a.ensureConnected(ctx); err != nil {
		return err
	}

	if !a.inTx {
		if _, err := a.exec(ctx, a.driver.BeginSQL()); err != nil {
			return err
		}
		a.inTx = true
		return nil
	}

	if !a.driver.Capabilities().SupportsSavepoints {
		return NewUnsupportedOperationError(a.driver.Type(), "savepoint",
			"nested transactions require savepoint support")
	}

	name := a.savepointName()
	if _, err := a.exec(ctx, a.driver.SavepointSQL(a.QuoteIdentifier(name).String())); err != nil {
		return err
	}
	a.savepoints = append(a.savepoints, name)
	return nil
}

// Commit releases the most recent savepoint, or commits the transaction when
// no savepoints remain. It reports whether anything was committed; committing
// outside of a transaction is a no-op.
func (a *Adapter) Commit(ctx context.Context) (bool, error) {
	if !a.inTx {
		return false, nil
	}

	if n := len(a.savepoints); n > 0 {
		name := a.savepoints[n-1]
		if stmt := a.driver.ReleaseSavepointSQL(a.QuoteIdentifier(name).String()); stmt != "" {
			if _, err := a.exec(ctx, stmt); err != nil {
				return false, err
			}
		}
		a.savepoints = a.savepoints[:n-1]
		return true, nil
	}

	if _, err := a.exec(ctx, a.driver.CommitSQL()); err != nil {
		return false, err
	}
	a.inTx = false
	return true, nil
}

// Rollback rolls back to the most recent savepoint, or rolls back the whole
// transaction when no savepoints remain. Rolling back outside of a
// transaction is a no-op.
func (a *Adapter) Rollback(ctx context.Context) (bool, error) {
	if !a.inTx {
		return false, nil
	}

	if n := len(a.savepoints); n > 0 {
		name := a.savepoints[n-1]
		if _, err := a.exec(ctx, a.driver.RollbackSavepointSQL(a.QuoteIdentifier(name).String())); err != nil {
			return false, err
		}
		a.savepoints = a.savepoints[:n-1]
		return true, nil
	}

	if _, err := a.exec(ctx, a.driver.RollbackSQL()); err != nil {
		return false, err
	}
	a.inTx = false
	return true, nil
}

// RollbackAll unwinds every open savepoint and the transaction itself,
// capped at maxRollbackAll iterations. On hitting the cap or a rollback
// failure it gives up and lets teardown proceed; runaway nesting must not
// block disconnection.
func (a *Adapter) RollbackAll(ctx context.Context) {
	for i := 0; i < maxRollbackAll && a.inTx; i++ {
		if _, err := a.Rollback(ctx); err != nil {
			a.logger.Warnf("rollback during teardown failed: %v", err)
			return
		}
	}
	if a.inTx {
		a.logger.Warnf("transaction still open after %d rollbacks, abandoning", maxRollbackAll)
	}
}

// normalizeParams flattens the accepted parameter shapes (variadic values,
// one explicit slice, a single scalar) into one ordered list.
func normalizeParams(params []interface{}) []interface{} {
	if len(params) == 1 {
		if list, ok := params[0].([]interface{}); ok {
			return list
		}
	}
	return params
}

// exec runs a non-row statement on the session and returns the affected row
// count, logging the SQL and parameters at debug level.
func (a *Adapter) exec(ctx context.Context, query string, params ...interface{}) (int64, error) {
	params = normalizeParams(params)
	query = a.driver.Rebind(query)
	a.logExec(query, params)

	res, err := a.sess.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, a.execFailed(query, params, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Engines without affected-count support still succeed.
		return 0, nil
	}
	return affected, nil
}

func (a *Adapter) logExec(query string, params []interface{}) {
	fields := map[string]string{"sql": query}
	if len(params) > 0 {
		fields["params"] = fmt.Sprint(params)
	}
	a.logger.WithFields(fields).Debug("execute")
}

func (a *Adapter) execFailed(query string, params []interface{}, err error) error {
	wrapped := NewDatabaseError(a.driver.Type(), "execute", err).WithContext("sql", query)
	if len(params) > 0 {
		wrapped.WithContext("params", params)
	}
	a.logger.WithFields(map[string]string{"sql": query}).Error(wrapped.Error())
	return wrapped
}

// Exec executes a non-row statement, auto-connecting if necessary, and
// returns the affected row count.
func (a *Adapter) Exec(ctx context.Context, query string, params ...interface{}) (int64, error) {
	if err := a.ensureConnected(ctx); err != nil {
		return 0, err
	}
	return a.exec(ctx, query, params...)
}

// Execute runs a query, auto-connecting if necessary, and wraps the result
// cursor as a Statement. With parameters present the statement is prepared
// and executed with bound parameters; otherwise it is executed directly.
func (a *Adapter) Execute(ctx context.Context, query string, params ...interface{}) (*Statement, error) {
	if err := a.ensureConnected(ctx); err != nil {
		return nil, err
	}

	params = normalizeParams(params)
	bound := a.driver.Rebind(query)
	a.logExec(bound, params)

	if len(params) == 0 {
		rows, err := a.sess.QueryContext(ctx, bound)
		if err != nil {
			return nil, a.execFailed(bound, nil, err)
		}
		return NewStatement(rows, query)
	}

	stmt, err := a.sess.PrepareContext(ctx, bound)
	if err != nil {
		return nil, a.execFailed(bound, params, err)
	}
	rows, err := stmt.QueryContext(ctx, params...)
	if err != nil {
		stmt.Close()
		return nil, a.execFailed(bound, params, err)
	}
	st, err := NewStatement(rows, query)
	if err != nil {
		stmt.Close()
		return nil, err
	}
	st.stmt = stmt
	return st, nil
}

// Prepare passes a query through to the engine's native prepare, wrapped as
// an unexecuted Statement for ExecuteStatement.
func (a *Adapter) Prepare(ctx context.Context, query string) (*Statement, error) {
	if err := a.ensureConnected(ctx); err != nil {
		return nil, err
	}

	bound := a.driver.Rebind(query)
	stmt, err := a.sess.PrepareContext(ctx, bound)
	if err != nil {
		return nil, a.execFailed(bound, nil, err)
	}
	return NewStatement(stmt, query)
}

// ExecuteStatement executes a previously prepared Statement with the given
// parameters and binds the result cursor to it.
func (a *Adapter) ExecuteStatement(ctx context.Context, st *Statement, params ...interface{}) (*Statement, error) {
	if st == nil || st.prepared() == nil {
		return nil, &StatementSourceError{Value: st}
	}

	params = normalizeParams(params)
	a.logExec(st.String(), params)

	rows, err := st.prepared().QueryContext(ctx, params...)
	if err != nil {
		return nil, a.execFailed(st.String(), params, err)
	}
	st.bind(rows)
	return st, nil
}

// Insert builds and executes an insert for the given row, returning the
// affected row count. Raw values are embedded literally and excluded from
// the bound parameters.
func (a *Adapter) Insert(ctx context.Context, table string, row map[string]interface{}) (int64, error) {
	query, params := a.BuildInsert(table, row)
	return a.Exec(ctx, query, params...)
}

// InsertValues builds and executes the positional insert form.
func (a *Adapter) InsertValues(ctx context.Context, table string, values []interface{}) (int64, error) {
	query, params := a.BuildInsertValues(table, values)
	return a.Exec(ctx, query, params...)
}

// Update builds and executes an update for the given row, with an optional
// caller-supplied where clause and its parameters.
func (a *Adapter) Update(ctx context.Context, table string, row map[string]interface{}, where string, whereParams ...interface{}) (int64, error) {
	query, params := a.BuildUpdate(table, row, where)
	params = append(params, normalizeParams(whereParams)...)
	return a.Exec(ctx, query, params...)
}

// UpdateColumns executes the value-less update form: the listed columns are
// set to placeholders and params supplies their values, followed by any
// where clause parameters.
func (a *Adapter) UpdateColumns(ctx context.Context, table string, columns []string, where string, params ...interface{}) (int64, error) {
	query := a.BuildUpdateColumns(table, columns, where)
	return a.Exec(ctx, query, params...)
}

// Delete builds and executes a delete with an optional where clause.
func (a *Adapter) Delete(ctx context.Context, table string, where string, whereParams ...interface{}) (int64, error) {
	query := a.BuildDelete(table, where)
	return a.Exec(ctx, query, normalizeParams(whereParams)...)
}

// LastInsertID reports the identifier generated by the most recent insert.
// Table and column narrow the lookup on engines that need it.
func (a *Adapter) LastInsertID(ctx context.Context, table, column string) (int64, error) {
	if err := a.ensureConnected(ctx); err != nil {
		return 0, err
	}
	id, err := a.driver.LastInsertID(ctx, a.sess, table, column)
	if err != nil {
		return 0, WrapError(a.driver.Type(), "last_insert_id", err)
	}
	return id, nil
}

// ListTables returns the names of the user tables visible on the connection.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	if err := a.ensureConnected(ctx); err != nil {
		return nil, err
	}
	tables, err := a.driver.ListTables(ctx, a.sess)
	if err != nil {
		return nil, WrapError(a.driver.Type(), "list_tables", err)
	}
	return tables, nil
}

// HasTable reports whether the named table exists.
func (a *Adapter) HasTable(ctx context.Context, name string) (bool, error) {
	tables, err := a.ListTables(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if t == name {
			return true, nil
		}
	}
	return false, nil
}
