package dialect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Postgres is a PostgreSQL server reached by connection URL.
type Postgres struct{}

func (Postgres) Name() string       { return "postgres" }
func (Postgres) DriverName() string { return "pgx" }
func (Postgres) FileBased() bool    { return false }

func (Postgres) DSNs(target string) []string {
	return []string{target}
}

func (Postgres) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) ColumnType(c core.Column) string {
	switch c.Type {
	case core.ColText:
		if c.Size > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Size)
		}
		return "TEXT"
	case core.ColDouble:
		return "DOUBLE PRECISION"
	case core.ColLong:
		return "BIGINT"
	case core.ColDateTime:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (Postgres) ListTables(ctx context.Context, db DBTX) ([]string, error) {
	return queryNames(ctx, db, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
}

func (Postgres) TableExists(ctx context.Context, db DBTX, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (Postgres) IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
