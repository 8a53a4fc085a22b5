// Package store creates the destination database and loads converted rows
// into it.
//
// Usage:
//
//	st, err := store.Create(ctx, dialect.SQLite{}, "out.sqlite", store.Options{})
//	if err != nil { ... }
//	ld := store.NewLoader(st, store.LoaderOptions{BatchSize: 1000})
//	defer ld.Close()
//
//	ld.EnsureSchema(ctx)
//	ld.InsertCuiles(ctx, row)
//	ld.Commit(ctx)
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/JonMunkholm/cuiles/internal/dialect"
	"github.com/JonMunkholm/cuiles/internal/logging"
)

// Options controls destination creation.
type Options struct {
	// AccessTemplate is a blank .accdb/.mdb copied to create Access
	// destinations. Access cannot create databases through ODBC DDL.
	AccessTemplate string
}

// Store is an open destination database.
type Store struct {
	db      *sql.DB
	dialect dialect.Dialect
	target  string
}

// Create builds a fresh destination at target and opens it. File-based
// destinations are removed first; Postgres destinations have the registered
// tables dropped. Any missing collaborator (driver not in this build, no
// template, engine refusing the file) yields core.ErrEngineMissing.
func Create(ctx context.Context, d dialect.Dialect, target string, opts Options) (*Store, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: destination is required", core.ErrInvalidRequest)
	}
	if !dialect.DriverRegistered(d.DriverName()) {
		return nil, fmt.Errorf("%w: %s driver %q not available in this build",
			core.ErrEngineMissing, d.Name(), d.DriverName())
	}

	if d.FileBased() {
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove existing destination %s: %w", target, err)
		}
		if dir := filepath.Dir(target); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create destination dir: %w", err)
			}
		}
	}

	if _, ok := d.(dialect.Access); ok {
		if err := copyTemplate(opts.AccessTemplate, target); err != nil {
			return nil, err
		}
	}

	db, err := open(ctx, d, target)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, dialect: d, target: target}

	if !d.FileBased() {
		if err := s.dropTables(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	logging.FromContext(ctx).Debug("destination created",
		"dialect", d.Name(),
		"target", target,
	)
	return s, nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the destination dialect.
func (s *Store) Dialect() dialect.Dialect { return s.dialect }

// Target returns the destination path or URL.
func (s *Store) Target() string { return s.target }

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) dropTables(ctx context.Context) error {
	for _, def := range core.All() {
		ok, err := s.dialect.TableExists(ctx, s.db, def.Info.Key)
		if err != nil {
			return fmt.Errorf("check table %s: %w", def.Info.Key, err)
		}
		if !ok {
			continue
		}
		if _, err := s.db.ExecContext(ctx, dialect.DropTableSQL(s.dialect, def.Info.Key)); err != nil {
			return fmt.Errorf("drop table %s: %w", def.Info.Key, err)
		}
	}
	return nil
}

// open tries each DSN of the dialect and pings it.
func open(ctx context.Context, d dialect.Dialect, target string) (*sql.DB, error) {
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
	return nil, fmt.Errorf("%w: open %s destination %s: %v",
		core.ErrEngineMissing, d.Name(), target, errors.Join(errs...))
}

func copyTemplate(template, target string) error {
	if template == "" {
		return fmt.Errorf("%w: no blank Access template configured (DEST_ACCESS_TEMPLATE)", core.ErrEngineMissing)
	}

	src, err := os.Open(template)
	if err != nil {
		return fmt.Errorf("%w: open Access template: %v", core.ErrEngineMissing, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create destination %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy Access template: %w", err)
	}
	return dst.Close()
}
