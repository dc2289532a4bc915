package adapter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// identifierStrip removes characters that must never survive inside an
// identifier: quote characters, semicolons, and the engine's own quoting
// symbol are dropped before the segments are wrapped.
func identifierStrip(id, symbol string) string {
	id = strings.NewReplacer(`"`, "", "'", "", "`", "", ";", "").Replace(id)
	if symbol != "" {
		id = strings.ReplaceAll(id, symbol, "")
	}
	return id
}

// QuoteIdentifier quotes a table/column identifier with the engine's quoting
// symbol. Qualified identifiers (schema.table.column) are quoted per segment
// and rejoined. The result is Raw, so an already quoted identifier is never
// re-quoted.
func (a *Adapter) QuoteIdentifier(id string) Raw {
	symbol := a.driver.Capabilities().IdentifierQuote
	segments := strings.Split(identifierStrip(id, symbol), ".")
	for i, seg := range segments {
		segments[i] = symbol + seg + symbol
	}
	return Raw(strings.Join(segments, "."))
}

// QuoteIdentifiers quotes a list of identifiers element-wise.
func (a *Adapter) QuoteIdentifiers(ids []string) []Raw {
	out := make([]Raw, len(ids))
	for i, id := range ids {
		out[i] = a.QuoteIdentifier(id)
	}
	return out
}

// Quote renders a value as a SQL literal. Raw values pass through unchanged,
// nil becomes NULL, slices are quoted element-wise and comma-joined, and
// strings are escaped through the driver's native value quoting.
func (a *Adapter) Quote(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case Raw:
		return v.String()
	case []interface{}:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = a.Quote(e)
		}
		return strings.Join(parts, ", ")
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return a.driver.QuoteString(v)
	case []byte:
		return a.driver.QuoteString(string(v))
	default:
		return a.driver.QuoteString(fmt.Sprint(v))
	}
}

// sortedColumns returns the row's column names in deterministic order so the
// generated placeholders and the parameter list always line up.
func sortedColumns(row map[string]interface{}) []string {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// BuildInsert builds INSERT INTO <table> (<columns>) VALUES (...) from a
// column-to-value row. Raw values are embedded literally; every other value
// becomes a ? placeholder with the value returned in params, in placeholder
// order.
func (a *Adapter) BuildInsert(table string, row map[string]interface{}) (string, []interface{}) {
	cols := sortedColumns(row)
	quotedCols := make([]string, len(cols))
	values := make([]string, len(cols))
	var params []interface{}

	for i, col := range cols {
		quotedCols[i] = a.QuoteIdentifier(col).String()
		if raw, ok := row[col].(Raw); ok {
			values[i] = raw.String()
		} else {
			values[i] = "?"
			params = append(params, row[col])
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		a.QuoteIdentifier(table),
		strings.Join(quotedCols, ", "),
		strings.Join(values, ", "))
	return query, params
}

// BuildInsertValues builds the positional insert form: no column list, one
// ? placeholder per value. Raw values are embedded literally.
func (a *Adapter) BuildInsertValues(table string, values []interface{}) (string, []interface{}) {
	placeholders := make([]string, len(values))
	var params []interface{}
	for i, v := range values {
		if raw, ok := v.(Raw); ok {
			placeholders[i] = raw.String()
		} else {
			placeholders[i] = "?"
			params = append(params, v)
		}
	}
	query := fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		a.QuoteIdentifier(table),
		strings.Join(placeholders, ", "))
	return query, params
}

// BuildUpdate builds UPDATE <table> SET col = ?, ... from a column-to-value
// row. Raw values are embedded literally. The where clause is caller-supplied
// raw SQL and is appended only when non-empty.
func (a *Adapter) BuildUpdate(table string, row map[string]interface{}, where string) (string, []interface{}) {
	cols := sortedColumns(row)
	sets := make([]string, len(cols))
	var params []interface{}

	for i, col := range cols {
		if raw, ok := row[col].(Raw); ok {
			sets[i] = fmt.Sprintf("%s = %s", a.QuoteIdentifier(col), raw)
		} else {
			sets[i] = fmt.Sprintf("%s = ?", a.QuoteIdentifier(col))
			params = append(params, row[col])
		}
	}

	query := fmt.Sprintf("UPDATE %s SET %s", a.QuoteIdentifier(table), strings.Join(sets, ", "))
	if where != "" {
		query += " WHERE " + where
	}
	return query, params
}

// BuildUpdateColumns builds the value-less update form: every listed column
// is set to a ? placeholder, with the values supplied at execution time.
func (a *Adapter) BuildUpdateColumns(table string, columns []string, where string) string {
	sets := make([]string, len(columns))
	for i, col := range columns {
		sets[i] = fmt.Sprintf("%s = ?", a.QuoteIdentifier(col))
	}
	query := fmt.Sprintf("UPDATE %s SET %s", a.QuoteIdentifier(table), strings.Join(sets, ", "))
	if where != "" {
		query += " WHERE " + where
	}
	return query
}

// BuildDelete builds DELETE FROM <table>, optionally suffixed with the
// caller-supplied where clause.
func (a *Adapter) BuildDelete(table string, where string) string {
	query := fmt.Sprintf("DELETE FROM %s", a.QuoteIdentifier(table))
	if where != "" {
		query += " WHERE " + where
	}
	return query
}
