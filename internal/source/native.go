package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/JonMunkholm/cuiles/internal/dialect"
	"github.com/JonMunkholm/cuiles/internal/logging"
)

var errNotOpen = errors.New("source not open")

// NativeReader reads a database file the dialect's driver opens directly.
type NativeReader struct {
	path    string
	dialect dialect.Dialect
	opts    Options

	db    *sql.DB
	table string
}

// NewNativeReader returns a reader for path using d.
func NewNativeReader(path string, d dialect.Dialect, opts Options) *NativeReader {
	return &NativeReader{path: path, dialect: d, opts: opts}
}

// Open connects to the file and picks the table to read: Options.Table when
// set, otherwise the first user table. When the engine refuses to list its
// tables, the preferred table is tried instead.
func (r *NativeReader) Open(ctx context.Context) error {
	if _, err := os.Stat(r.path); err != nil {
		return fmt.Errorf("%w: %s", core.ErrSourceNotFound, r.path)
	}

	db, err := openDB(ctx, r.dialect, r.path)
	if err != nil {
		return err
	}
	r.db = db

	r.table, err = chooseTable(ctx, r.db, r.dialect, r.opts, r.path)
	return err
}

func chooseTable(ctx context.Context, db dialect.DBTX, d dialect.Dialect, opts Options, path string) (string, error) {
	if opts.Table != "" {
		ok, err := d.TableExists(ctx, db, opts.Table)
		if err != nil {
			return "", fmt.Errorf("%w: %v", core.ErrConnection, err)
		}
		if !ok {
			return "", fmt.Errorf("%w: table %q not in %s", core.ErrSchemaNotFound, opts.Table, path)
		}
		return opts.Table, nil
	}

	tables, listErr := d.ListTables(ctx, db)
	if listErr != nil {
		preferred := opts.preferredTable()
		if ok, err := d.TableExists(ctx, db, preferred); err == nil && ok {
			logging.FromContext(ctx).Warn("cannot list source tables, reading preferred table",
				"source", path,
				"table", preferred,
				"error", listErr,
			)
			return preferred, nil
		}
		return "", fmt.Errorf("%w: cannot list tables in %s (%v) and %q is absent; set SOURCE_TABLE",
			core.ErrSchemaNotFound, path, listErr, preferred)
	}
	if len(tables) == 0 {
		return "", fmt.Errorf("%w: no user tables in %s", core.ErrSchemaNotFound, path)
	}
	return tables[0], nil
}

func (r *NativeReader) ListUserTables(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, errNotOpen
	}
	tables, err := r.dialect.ListTables(ctx, r.db)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", core.ErrConnection, err)
	}
	return tables, nil
}

func (r *NativeReader) ReadAll(ctx context.Context) ([]core.Record, error) {
	if r.db == nil {
		return nil, errNotOpen
	}
	return readTable(ctx, r.db, r.dialect, r.table)
}

func (r *NativeReader) Table() string { return r.table }

func (r *NativeReader) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// openDB opens and pings the first DSN that works. Failures are reported as
// ErrConnection and never retried.
func openDB(ctx context.Context, d dialect.Dialect, target string) (*sql.DB, error) {
	if !dialect.DriverRegistered(d.DriverName()) {
		return nil, fmt.Errorf("%w: %s driver %q not available in this build",
			core.ErrConnection, d.Name(), d.DriverName())
	}

	var errs []error
	for _, dsn := range d.DSNs(target) {
		db, err := sql.Open(d.DriverName(), dsn)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			errs = append(errs, err)
			continue
		}
		return db, nil
	}
	return nil, fmt.Errorf("%w: %s: %v", core.ErrConnection, target, errors.Join(errs...))
}
