// Package dialect implements the per-engine SQL details used by the source
// readers and the destination loader.
//
// Architecture:
//
//	Access   - Microsoft Access through ODBC (.accdb / .mdb)
//	SQLite   - embedded stores inside .odb archives, standalone .sqlite files
//	Postgres - PostgreSQL destinations through pgx
//
// Every dialect talks through database/sql; the driver for Access is only
// linked in on Windows or with the "odbc" build tag.
package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/cuiles/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Dialect describes one database engine.
type Dialect interface {
	// Name is the configuration name: "access", "sqlite", "postgres".
	Name() string

	// DriverName is the database/sql driver the dialect opens.
	DriverName() string

	// DSNs returns the connection strings to try, in order, for a target
	// (file path or URL).
	DSNs(target string) []string

	// Quote quotes an identifier.
	Quote(ident string) string

	// Placeholder returns the bind parameter for the n-th argument (1-based).
	Placeholder(n int) string

	// ColumnType renders a logical column type.
	ColumnType(c core.Column) string

	// ListTables returns user table names in catalog order.
	ListTables(ctx context.Context, db DBTX) ([]string, error)

	// TableExists reports whether a table is present.
	TableExists(ctx context.Context, db DBTX, name string) (bool, error)

	// IsDuplicateKey reports whether err is a primary key or unique violation.
	IsDuplicateKey(err error) bool

	// FileBased reports whether the target is a file path.
	FileBased() bool
}

// ByName returns the dialect registered under name.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "access", "mdb", "accdb":
		return NewAccess(), nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

// DriverRegistered reports whether the database/sql driver was linked in.
func DriverRegistered(driver string) bool {
	return slices.Contains(sql.Drivers(), driver)
}

// CreateTableSQL renders the CREATE TABLE statement for a destination table.
func CreateTableSQL(d Dialect, info core.TableInfo) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(d.Quote(info.Key))
	b.WriteString(" (\n")
	for _, c := range info.Columns {
		fmt.Fprintf(&b, "    %s %s,\n", d.Quote(c.Name), d.ColumnType(c))
	}
	pk := make([]string, len(info.PrimaryKey))
	for i, k := range info.PrimaryKey {
		pk[i] = d.Quote(k)
	}
	fmt.Fprintf(&b, "    PRIMARY KEY (%s)\n)", strings.Join(pk, ", "))
	return b.String()
}

// InsertSQL renders a parameterized INSERT for all columns of a table.
func InsertSQL(d Dialect, info core.TableInfo) string {
	cols := make([]string, len(info.Columns))
	params := make([]string, len(info.Columns))
	for i, c := range info.Columns {
		cols[i] = d.Quote(c.Name)
		params[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(info.Key), strings.Join(cols, ", "), strings.Join(params, ", "))
}

// DeleteAllSQL renders an unconditional DELETE.
func DeleteAllSQL(d Dialect, table string) string {
	return "DELETE FROM " + d.Quote(table)
}

// SelectAllSQL renders SELECT * for a source table.
func SelectAllSQL(d Dialect, table string) string {
	return "SELECT * FROM " + d.Quote(table)
}

// DropTableSQL renders a DROP TABLE statement.
func DropTableSQL(d Dialect, table string) string {
	return "DROP TABLE " + d.Quote(table)
}

// queryNames runs a query returning one text column per row.
func queryNames(ctx context.Context, db DBTX, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// probeTable checks existence by selecting no rows from the table. Used where
// the engine has no readable catalog.
func probeTable(ctx context.Context, db DBTX, d Dialect, name string) bool {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+d.Quote(name)+" WHERE 1=0")
	if err != nil {
		return false
	}
	rows.Close()
	return true
}

// jetColumnType renders types with the Access (Jet/ACE) names. SQLite accepts
// the same names through type affinity.
func jetColumnType(c core.Column) string {
	switch c.Type {
	case core.ColText:
		if c.Size > 0 {
			return fmt.Sprintf("TEXT(%d)", c.Size)
		}
		return "TEXT"
	case core.ColDouble:
		return "DOUBLE"
	case core.ColLong:
		return "LONG"
	case core.ColDateTime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}
