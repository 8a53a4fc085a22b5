package dialect

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/cuiles/internal/core"
)

// Default Access ODBC driver names, tried in order.
var DefaultAccessDrivers = []string{
	"Microsoft Access Driver (*.mdb, *.accdb)",
	"Microsoft Access Driver (*.mdb)",
}

// Access is Microsoft Access reached through ODBC.
type Access struct {
	Drivers []string
}

// NewAccess returns an Access dialect. With no driver names it uses
// DefaultAccessDrivers.
func NewAccess(drivers ...string) Access {
	if len(drivers) == 0 {
		drivers = DefaultAccessDrivers
	}
	return Access{Drivers: drivers}
}

func (Access) Name() string       { return "access" }
func (Access) DriverName() string { return "odbc" }
func (Access) FileBased() bool    { return true }

func (a Access) DSNs(target string) []string {
	dsns := make([]string, len(a.Drivers))
	for i, drv := range a.Drivers {
		dsns[i] = fmt.Sprintf("DRIVER={%s};DBQ=%s;", drv, target)
	}
	return dsns
}

// Quote brackets identifiers that are not plain words, so the DDL keeps the
// bare column names Access users expect.
func (Access) Quote(ident string) string {
	for _, r := range ident {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
		}
	}
	return ident
}

func (Access) Placeholder(int) string { return "?" }

func (Access) ColumnType(c core.Column) string { return jetColumnType(c) }

// ListTables reads user tables from the MSysObjects catalog (Type 1, Flags 0).
// ACE usually denies ODBC connections read permission on MSysObjects, so
// callers must handle an error here and name the table some other way.
func (Access) ListTables(ctx context.Context, db DBTX) ([]string, error) {
	return queryNames(ctx, db,
		"SELECT Name FROM MSysObjects WHERE Type = 1 AND Flags = 0 ORDER BY Name")
}

func (a Access) TableExists(ctx context.Context, db DBTX, name string) (bool, error) {
	return probeTable(ctx, db, a, name), nil
}

// IsDuplicateKey matches SQLSTATE 23000, which the Access driver reports for
// key violations. The ODBC error text carries the state as "{23000}".
func (Access) IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23000") || strings.Contains(strings.ToLower(msg), "duplicate values")
}
