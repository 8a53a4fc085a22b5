package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/JonMunkholm/cuiles/internal/dialect"
	"github.com/JonMunkholm/cuiles/internal/logging"
)

// DefaultBatchSize is the number of batch-committed rows per transaction.
const DefaultBatchSize = 1000

// LoaderOptions controls loading.
type LoaderOptions struct {
	// BatchSize is the commit interval for tables with BatchCommit set.
	BatchSize int
}

// Loader writes rows into a Store through one open transaction at a time.
// Every table shares that transaction, so a batch commit triggered by a
// periodos insert also commits the cuiles rows and the periodos reset still
// pending in it. A Loader is not safe for concurrent use.
type Loader struct {
	store     *Store
	batchSize int

	tx       *sql.Tx
	pending  int
	inserts  map[string]string
	inserted map[string]int
}

// NewLoader returns a loader that owns st. Closing the loader closes st.
func NewLoader(st *Store, opts LoaderOptions) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Loader{
		store:     st,
		batchSize: opts.BatchSize,
		inserts:   make(map[string]string),
		inserted:  make(map[string]int),
	}
}

// EnsureSchema creates every registered table that does not exist yet.
func (l *Loader) EnsureSchema(ctx context.Context) error {
	d := l.store.dialect
	for _, def := range core.All() {
		ok, err := d.TableExists(ctx, l.store.db, def.Info.Key)
		if err != nil {
			return fmt.Errorf("check table %s: %w", def.Info.Key, err)
		}
		if ok {
			continue
		}
		if _, err := l.store.db.ExecContext(ctx, dialect.CreateTableSQL(d, def.Info)); err != nil {
			return fmt.Errorf("create table %s: %w", def.Info.Key, err)
		}
		logging.FromContext(ctx).Debug("table created", "table", def.Info.Key)
	}
	return nil
}

// Reset deletes every row of table inside the current transaction.
func (l *Loader) Reset(ctx context.Context, table string) error {
	tx, err := l.begin(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, dialect.DeleteAllSQL(l.store.dialect, table)); err != nil {
		l.rollback()
		return fmt.Errorf("reset %s: %w", table, err)
	}
	return nil
}

// ResetPeriodos clears the periodos table for a full refresh.
func (l *Loader) ResetPeriodos(ctx context.Context) error {
	return l.Reset(ctx, core.TablePeriodos)
}

// InsertCuiles inserts one wide row.
func (l *Loader) InsertCuiles(ctx context.Context, row core.CuilesRow) error {
	return l.Insert(ctx, core.TableCuiles, row)
}

// InsertPeriodo inserts one month row, committing the shared transaction
// when the batch fills.
func (l *Loader) InsertPeriodo(ctx context.Context, row core.PeriodoRow) error {
	return l.Insert(ctx, core.TablePeriodos, row)
}

// Insert writes row into the registered table. A duplicate key rolls back
// the current transaction and returns core.ErrIntegrity.
func (l *Loader) Insert(ctx context.Context, table string, row any) error {
	def, ok := core.Get(table)
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}

	tx, err := l.begin(ctx)
	if err != nil {
		return err
	}

	query, ok := l.inserts[table]
	if !ok {
		query = dialect.InsertSQL(l.store.dialect, def.Info)
		l.inserts[table] = query
	}

	if _, err := tx.ExecContext(ctx, query, def.Values(row)...); err != nil {
		l.rollback()
		if l.store.dialect.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s key %s: %w", core.ErrIntegrity, table, def.Key(row), err)
		}
		return fmt.Errorf("insert %s %s: %w", table, def.Key(row), err)
	}
	l.inserted[table]++

	if def.BatchCommit {
		l.pending++
		if l.pending >= l.batchSize {
			if err := l.Commit(ctx); err != nil {
				return err
			}
			logging.FromContext(ctx).Debug("batch committed",
				"table", table,
				"rows", l.inserted[table],
			)
		}
	}
	return nil
}

// Commit commits the open transaction, if any.
func (l *Loader) Commit(ctx context.Context) error {
	if l.tx == nil {
		return nil
	}
	err := l.tx.Commit()
	l.tx = nil
	l.pending = 0
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Inserted returns how many rows were inserted into table, including rows
// whose transaction was later rolled back.
func (l *Loader) Inserted(table string) int {
	return l.inserted[table]
}

// Store returns the destination the loader writes to.
func (l *Loader) Store() *Store { return l.store }

// Close rolls back uncommitted work and closes the destination.
func (l *Loader) Close() error {
	l.rollback()
	return l.store.Close()
}

func (l *Loader) begin(ctx context.Context) (*sql.Tx, error) {
	if l.tx != nil {
		return l.tx, nil
	}
	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	l.tx = tx
	return tx, nil
}

func (l *Loader) rollback() {
	if l.tx == nil {
		return
	}
	l.tx.Rollback()
	l.tx = nil
	l.pending = 0
}
