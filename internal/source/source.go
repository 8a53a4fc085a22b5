// Package source reads flat contribution records out of the supported
// container formats.
//
// Two reader variants share one capability:
//
//	ArchiveReader - .odb archives: a zip holding an embedded SQLite store
//	NativeReader  - databases opened directly (.accdb/.mdb via ODBC, .sqlite)
//
// Use ReadFile for the common open/read/close sequence; it guarantees the
// archive's scratch directory is removed on every exit path.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/JonMunkholm/cuiles/internal/dialect"
)

// DefaultPreferredTable is the table an .odb export usually carries.
const DefaultPreferredTable = "VW_DIBENEF_ANNIO_AP_ADIC_DEL - CUILES 2015"

// StorePath is the location of the embedded store inside an .odb archive.
const StorePath = "database/data/script"

// Reader is implemented by every source variant.
type Reader interface {
	// Open acquires the underlying connection and selects the table to read.
	Open(ctx context.Context) error

	// ListUserTables returns the non-system tables of the open source.
	ListUserTables(ctx context.Context) ([]string, error)

	// ReadAll returns every record of the selected table in source order.
	ReadAll(ctx context.Context) ([]core.Record, error)

	// Table returns the selected table name after Open.
	Table() string

	// Close releases the connection and any scratch files. Safe to call
	// more than once and after a failed Open.
	Close() error
}

// Options tunes how sources are opened.
type Options struct {
	// PreferredTable is tried first in archives. Empty means DefaultPreferredTable.
	PreferredTable string

	// Table forces the table read from native sources. Empty means the
	// first user table.
	Table string

	// TempDir is the parent for archive scratch directories. Empty means
	// the OS default.
	TempDir string

	// AccessDrivers overrides the ODBC driver names for Access sources.
	AccessDrivers []string
}

func (o Options) preferredTable() string {
	if o.PreferredTable != "" {
		return o.PreferredTable
	}
	return DefaultPreferredTable
}

// New selects a reader variant from the file extension.
func New(path string, opts Options) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".odb":
		return NewArchiveReader(path, opts), nil
	case ".accdb", ".mdb":
		return NewNativeReader(path, dialect.NewAccess(opts.AccessDrivers...), opts), nil
	case ".sqlite", ".sqlite3", ".db":
		return NewNativeReader(path, dialect.SQLite{}, opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedSource, path)
	}
}

// Check reports whether path names a readable source without opening it:
// core.ErrUnsupportedSource for an unknown extension, core.ErrSourceNotFound
// for a missing or directory path.
func Check(path string) error {
	if _, err := New(path, Options{}); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", core.ErrSourceNotFound, path)
	}
	return nil
}

// ReadFile opens path, reads every record of its selected table and closes
// the source. The table name is returned for reporting.
func ReadFile(ctx context.Context, path string, opts Options) ([]core.Record, string, error) {
	r, err := New(path, opts)
	if err != nil {
		return nil, "", err
	}
	defer r.Close()

	if err := r.Open(ctx); err != nil {
		return nil, "", err
	}

	records, err := r.ReadAll(ctx)
	if err != nil {
		return nil, r.Table(), err
	}
	return records, r.Table(), nil
}
