package adapter

import (
	"errors"
	"fmt"
	"testing"
)

// fakeCursor is an in-memory Cursor over fixed rows.
type fakeCursor struct {
	names  []string
	rows   [][]interface{}
	pos    int
	closed bool
}

func newFakeCursor(names []string, rows [][]interface{}) *fakeCursor {
	return &fakeCursor{names: names, rows: rows, pos: -1}
}

func (c *fakeCursor) Columns() ([]string, error) { return c.names, nil }

func (c *fakeCursor) Next() bool {
	c.pos++
	return c.pos < len(c.rows)
}

func (c *fakeCursor) Scan(dest ...interface{}) error {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return errors.New("scan without next")
	}
	row := c.rows[c.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan expected %d destinations, got %d", len(row), len(dest))
	}
	for i, v := range row {
		*(dest[i].(*interface{})) = v
	}
	return nil
}

func (c *fakeCursor) Err() error   { return nil }
func (c *fakeCursor) Close() error { c.closed = true; return nil }

func userCursor() *fakeCursor {
	return newFakeCursor(
		[]string{"id", "name"},
		[][]interface{}{
			{1, "a"},
			{2, "b"},
		},
	)
}

func mustStatement(t *testing.T, cur Cursor) *Statement {
	t.Helper()
	st, err := NewStatement(cur, "SELECT id, name FROM users")
	if err != nil {
		t.Fatalf("NewStatement: %v", err)
	}
	return st
}

func TestNewStatementPassThrough(t *testing.T) {
	st := mustStatement(t, userCursor())
	again, err := NewStatement(st, "ignored")
	if err != nil {
		t.Fatalf("NewStatement(statement): %v", err)
	}
	if again != st {
		t.Error("wrapping an existing Statement must pass it through unchanged")
	}
}

func TestNewStatementRejectsOtherInput(t *testing.T) {
	_, err := NewStatement(42, "")
	if err == nil {
		t.Fatal("expected an error for a non-cursor source")
	}
	if !errors.Is(err, ErrInvalidStatementSource) {
		t.Errorf("expected ErrInvalidStatementSource, got %v", err)
	}
	var srcErr *StatementSourceError
	if !errors.As(err, &srcErr) {
		t.Errorf("expected *StatementSourceError, got %T", err)
	}
}

func TestGetRow(t *testing.T) {
	st := mustStatement(t, userCursor())

	row, err := st.GetRow()
	if err != nil {
		t.Fatalf("GetRow: %v", err)
	}
	if row["id"] != 1 || row["name"] != "a" {
		t.Errorf("row = %v", row)
	}

	row, err = st.GetRow()
	if err != nil || row["id"] != 2 {
		t.Errorf("second row = %v, err = %v", row, err)
	}

	row, err = st.GetRow()
	if err != nil {
		t.Fatalf("GetRow at end: %v", err)
	}
	if row != nil {
		t.Errorf("expected nil at end of data, got %v", row)
	}
}

func TestGetCol(t *testing.T) {
	st := mustStatement(t, userCursor())

	v, ok, err := st.GetCol(1)
	if err != nil || !ok || v != "a" {
		t.Errorf("GetCol(1) = (%v, %v, %v)", v, ok, err)
	}

	_, _, err = st.GetCol(5)
	if err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestGetCols(t *testing.T) {
	st := mustStatement(t, userCursor())

	vals, err := st.GetCols(0)
	if err != nil {
		t.Fatalf("GetCols: %v", err)
	}
	if len(vals) != 2 || vals[0] != 1 || vals[1] != 2 {
		t.Errorf("vals = %v", vals)
	}
}

func TestGetAll(t *testing.T) {
	st := mustStatement(t, userCursor())

	rows, err := st.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d", len(rows))
	}
	if rows[0]["name"] != "a" || rows[1]["name"] != "b" {
		t.Errorf("rows = %v", rows)
	}
}

func TestGetAllKeyed(t *testing.T) {
	st := mustStatement(t, userCursor())

	keyed, err := st.GetAllKeyed("id")
	if err != nil {
		t.Fatalf("GetAllKeyed: %v", err)
	}
	if len(keyed) != 2 {
		t.Fatalf("len = %d", len(keyed))
	}
	if keyed["1"]["name"] != "a" || keyed["2"]["name"] != "b" {
		t.Errorf("keyed = %v", keyed)
	}
}

func TestGetAllKeyedDuplicatesOverwrite(t *testing.T) {
	cur := newFakeCursor(
		[]string{"id", "name"},
		[][]interface{}{
			{1, "first"},
			{1, "second"},
		},
	)
	st := mustStatement(t, cur)

	keyed, err := st.GetAllKeyed("id")
	if err != nil {
		t.Fatalf("GetAllKeyed: %v", err)
	}
	if len(keyed) != 1 || keyed["1"]["name"] != "second" {
		t.Errorf("keyed = %v, expected the later row to win", keyed)
	}
}

func TestGetAllKeyedMissingColumn(t *testing.T) {
	st := mustStatement(t, userCursor())

	_, err := st.GetAllKeyed("nope")
	if err == nil {
		t.Error("expected an error for a missing key column")
	}
}

func TestByteSlicesAreNormalizedToStrings(t *testing.T) {
	cur := newFakeCursor([]string{"name"}, [][]interface{}{{[]byte("bytes")}})
	st := mustStatement(t, cur)

	row, err := st.GetRow()
	if err != nil {
		t.Fatalf("GetRow: %v", err)
	}
	if row["name"] != "bytes" {
		t.Errorf("row = %v, expected []byte normalized to string", row)
	}
}

func TestStatementStringAndClose(t *testing.T) {
	cur := userCursor()
	st := mustStatement(t, cur)

	if st.String() != "SELECT id, name FROM users" {
		t.Errorf("String() = %q", st.String())
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !cur.closed {
		t.Error("Close must release the cursor")
	}
	if _, err := st.GetRow(); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("GetRow after Close = %v, expected ErrConnectionClosed", err)
	}
}
