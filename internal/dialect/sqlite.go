package dialect

import (
	"context"
	"errors"
	"strings"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/mattn/go-sqlite3"
)

// SQLite is a file-backed SQLite database.
type SQLite struct{}

func (SQLite) Name() string       { return "sqlite" }
func (SQLite) DriverName() string { return "sqlite3" }
func (SQLite) FileBased() bool    { return true }

func (SQLite) DSNs(target string) []string {
	return []string{target}
}

func (SQLite) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) ColumnType(c core.Column) string { return jetColumnType(c) }

func (SQLite) ListTables(ctx context.Context, db DBTX) ([]string, error) {
	return queryNames(ctx, db,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid")
}

// TableExists reports whether name is a table or a view. Source exports often
// expose the data to convert as a view.
func (SQLite) TableExists(ctx context.Context, db DBTX, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?", name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (SQLite) IsDuplicateKey(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		se.ExtendedCode == sqlite3.ErrConstraintUnique
}
