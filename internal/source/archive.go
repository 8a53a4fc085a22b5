package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/JonMunkholm/cuiles/internal/dialect"
	"github.com/klauspost/compress/zip"
)

// ArchiveReader reads an .odb archive: a zip whose embedded store at
// StorePath is a SQLite database. The archive is extracted into a scratch
// directory that lives until Close.
type ArchiveReader struct {
	path string
	opts Options

	dir   string
	db    *sql.DB
	table string
}

// NewArchiveReader returns a reader for the archive at path.
func NewArchiveReader(path string, opts Options) *ArchiveReader {
	return &ArchiveReader{path: path, opts: opts}
}

// Open extracts the archive, opens the embedded store and selects the
// preferred table, falling back to the first user table.
func (r *ArchiveReader) Open(ctx context.Context) (err error) {
	if _, statErr := os.Stat(r.path); statErr != nil {
		return fmt.Errorf("%w: %s", core.ErrSourceNotFound, r.path)
	}

	dir, err := os.MkdirTemp(r.opts.TempDir, "cuiles-odb-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	r.dir = dir
	defer func() {
		if err != nil {
			r.Close()
		}
	}()

	if err := extract(ctx, r.path, dir); err != nil {
		return err
	}

	store := filepath.Join(dir, filepath.FromSlash(StorePath))
	if info, statErr := os.Stat(store); statErr != nil || info.IsDir() {
		return fmt.Errorf("%w: %s has no %s", core.ErrSourceNotFound, r.path, StorePath)
	}

	d := dialect.SQLite{}
	r.db, err = openDB(ctx, d, store)
	if err != nil {
		return err
	}

	preferred := r.opts.preferredTable()
	ok, err := d.TableExists(ctx, r.db, preferred)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrConnection, err)
	}
	if ok {
		r.table = preferred
		return nil
	}

	tables, err := r.ListUserTables(ctx)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		return fmt.Errorf("%w: no user tables in %s", core.ErrSchemaNotFound, r.path)
	}
	r.table = tables[0]
	return nil
}

func (r *ArchiveReader) ListUserTables(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, errNotOpen
	}
	tables, err := dialect.SQLite{}.ListTables(ctx, r.db)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", core.ErrConnection, err)
	}
	return tables, nil
}

func (r *ArchiveReader) ReadAll(ctx context.Context) ([]core.Record, error) {
	if r.db == nil {
		return nil, errNotOpen
	}
	return readTable(ctx, r.db, dialect.SQLite{}, r.table)
}

func (r *ArchiveReader) Table() string { return r.table }

// Close closes the store and removes the scratch directory.
func (r *ArchiveReader) Close() error {
	var errs []error
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	if r.dir != "" {
		errs = append(errs, os.RemoveAll(r.dir))
		r.dir = ""
	}
	return errors.Join(errs...)
}

// extract unpacks every entry of the zip at path into dir. Entries that
// would land outside dir are rejected.
func extract(ctx context.Context, path, dir string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: open archive %s: %v", core.ErrConnection, path, err)
	}
	defer zr.Close()

	root := filepath.Clean(dir) + string(os.PathSeparator)
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("archive entry %q escapes extraction dir", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(0o600))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
