package adapter

import (
	"database/sql"
	"fmt"
)

// Cursor is the row-iteration surface a Statement wraps. *sql.Rows satisfies
// it; tests substitute in-memory cursors.
type Cursor interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

// Statement wraps one executed query result cursor, or a prepared-but-not-yet
// executed handle produced by Adapter.Prepare. It exposes row-at-a-time and
// bulk fetch operations; the Statement exclusively owns its cursor until the
// caller closes or exhausts it.
type Statement struct {
	query string
	cur   Cursor
	stmt  *sql.Stmt
}

// NewStatement builds a Statement from src. A *Statement passes through
// unchanged; a *sql.Rows, Cursor or *sql.Stmt is wrapped; anything else is
// rejected with a StatementSourceError.
func NewStatement(src interface{}, query string) (*Statement, error) {
	switch v := src.(type) {
	case *Statement:
		return v, nil
	case *sql.Rows:
		return &Statement{query: query, cur: v}, nil
	case Cursor:
		return &Statement{query: query, cur: v}, nil
	case *sql.Stmt:
		return &Statement{query: query, stmt: v}, nil
	default:
		return nil, &StatementSourceError{Value: src}
	}
}

// prepared reports the unexecuted prepared handle, if any.
func (s *Statement) prepared() *sql.Stmt {
	return s.stmt
}

// bind attaches the executed cursor to a prepared statement.
func (s *Statement) bind(cur Cursor) {
	s.cur = cur
}

// String returns the original SQL text for diagnostics.
func (s *Statement) String() string {
	return s.query
}

// Close releases the underlying cursor and prepared handle.
func (s *Statement) Close() error {
	var err error
	if s.cur != nil {
		err = s.cur.Close()
		s.cur = nil
	}
	if s.stmt != nil {
		if cerr := s.stmt.Close(); err == nil {
			err = cerr
		}
		s.stmt = nil
	}
	return err
}

// GetRow fetches the next row as a column-to-value map. It returns nil with
// a nil error at end of data.
func (s *Statement) GetRow() (map[string]interface{}, error) {
	cols, vals, err := s.next()
	if err != nil || vals == nil {
		return nil, err
	}
	row := make(map[string]interface{}, len(cols))
	for i, col := range cols {
		row[col] = vals[i]
	}
	return row, nil
}

// GetCol fetches the next row and returns only column n. The second return
// value is false at end of data.
func (s *Statement) GetCol(n int) (interface{}, bool, error) {
	cols, vals, err := s.next()
	if err != nil || vals == nil {
		return nil, false, err
	}
	if n < 0 || n >= len(cols) {
		return nil, false, fmt.Errorf("column index %d out of range (result has %d columns)", n, len(cols))
	}
	return vals[n], true, nil
}

// GetCols fetches all remaining rows and returns column n of each, in order.
func (s *Statement) GetCols(n int) ([]interface{}, error) {
	var out []interface{}
	for {
		v, ok, err := s.GetCol(n)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// GetAll fetches all remaining rows as an ordered sequence of maps.
func (s *Statement) GetAll() ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	for {
		row, err := s.GetRow()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return out, nil
		}
		out = append(out, row)
	}
}

// GetAllKeyed fetches all remaining rows as a map keyed by the stringified
// value of keyColumn per row. Later duplicate keys overwrite earlier ones.
func (s *Statement) GetAllKeyed(keyColumn string) (map[string]map[string]interface{}, error) {
	out := make(map[string]map[string]interface{})
	for {
		row, err := s.GetRow()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return out, nil
		}
		key, ok := row[keyColumn]
		if !ok {
			return nil, fmt.Errorf("key column %q not present in result row", keyColumn)
		}
		out[fmt.Sprint(key)] = row
	}
}

// next scans one row off the cursor, normalizing driver []byte values into
// strings. Returns nil values at end of data.
func (s *Statement) next() ([]string, []interface{}, error) {
	if s.cur == nil {
		return nil, nil, ErrConnectionClosed
	}
	if !s.cur.Next() {
		return nil, nil, s.cur.Err()
	}
	cols, err := s.cur.Columns()
	if err != nil {
		return nil, nil, err
	}
	raw := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := s.cur.Scan(ptrs...); err != nil {
		return nil, nil, err
	}
	for i, v := range raw {
		if b, ok := v.([]byte); ok {
			raw[i] = string(b)
		}
	}
	return cols, raw, nil
}
