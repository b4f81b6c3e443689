// Package ddl renders the table statements shared by the destination stores.
package ddl

import (
	"fmt"
	"strings"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// Dialect selects the SQL flavour.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// MapType returns the column type used for t.
//
//	integer   -> BIGINT            / INTEGER
//	real      -> DOUBLE PRECISION  / REAL
//	boolean   -> BOOLEAN           / INTEGER (0/1)
//	date      -> DATE              / TEXT (ISO-8601)
//	timestamp -> TIMESTAMPTZ       / TEXT (ISO-8601)
//	text      -> TEXT
func MapType(d Dialect, t pgingest.FieldType) string {
	if d == SQLite {
		switch t {
		case pgingest.FieldInteger, pgingest.FieldBoolean:
			return "INTEGER"
		case pgingest.FieldReal:
			return "REAL"
		default:
			return "TEXT"
		}
	}

	switch t {
	case pgingest.FieldInteger:
		return "BIGINT"
	case pgingest.FieldReal:
		return "DOUBLE PRECISION"
	case pgingest.FieldBoolean:
		return "BOOLEAN"
	case pgingest.FieldDate:
		return "DATE"
	case pgingest.FieldTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// QuoteIdent double-quotes id, escaping embedded quotes.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// SplitTable splits "schema.table" into its non-empty, trimmed parts.
func SplitTable(fqn string) []string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// QuoteTable quotes every part of a possibly schema-qualified table name.
func QuoteTable(fqn string) string {
	parts := SplitTable(fqn)
	for i, p := range parts {
		parts[i] = QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// DropTable returns the statement removing any existing definition of table.
func DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + QuoteTable(table)
}

// CreateTable returns the CREATE TABLE statement for columns.
func CreateTable(d Dialect, table string, columns []pgingest.Column) (string, error) {
	if len(SplitTable(table)) == 0 {
		return "", fmt.Errorf("%s ddl: table name must not be empty", d)
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("%s ddl: table %s needs at least one column", d, table)
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("%s ddl: column %d of %s has no name", d, i+1, table)
		}
		defs[i] = QuoteIdent(c.Name) + " " + MapType(d, c.Type)
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", QuoteTable(table), strings.Join(defs, ",\n  ")), nil
}

// Insert returns a single-row INSERT with ? placeholders.
func Insert(table string, columns []pgingest.Column) string {
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		names[i] = QuoteIdent(c.Name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteTable(table), strings.Join(names, ", "), strings.Join(marks, ", "))
}

// ColumnNames returns the names of columns in order.
func ColumnNames(columns []pgingest.Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}
