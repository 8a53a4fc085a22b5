package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/cuiles/internal/core"
	_ "github.com/JonMunkholm/cuiles/internal/core/tables"
	"github.com/JonMunkholm/cuiles/internal/dialect"
)

func newTestLoader(t *testing.T, batch int) (*Loader, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dest.sqlite")
	st, err := Create(context.Background(), dialect.SQLite{}, path, Options{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	ld := NewLoader(st, LoaderOptions{BatchSize: batch})
	t.Cleanup(func() { ld.Close() })

	if err := ld.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return ld, path
}

func periodo(cuit, mes string) core.PeriodoRow {
	return core.PeriodoRow{CUIT: cuit, Mes: mes, Aporte: 1}
}

func countRows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + dialect.SQLite{}.Quote(table)).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestCreate_RemovesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dest.sqlite")
	if err := os.WriteFile(path, []byte("stale contents"), 0o600); err != nil {
		t.Fatal(err)
	}

	st, err := Create(context.Background(), dialect.SQLite{}, path, Options{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer st.Close()

	ld := NewLoader(st, LoaderOptions{})
	if err := ld.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() on recreated file error = %v", err)
	}
}

func TestCreate_AccessWithoutEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dest.accdb")
	_, err := Create(context.Background(), dialect.NewAccess(), path, Options{})
	if !errors.Is(err, core.ErrEngineMissing) {
		t.Fatalf("error = %v, want ErrEngineMissing", err)
	}
}

func TestCreate_EmptyTarget(t *testing.T) {
	_, err := Create(context.Background(), dialect.SQLite{}, "", Options{})
	if !errors.Is(err, core.ErrInvalidRequest) {
		t.Fatalf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	ld, _ := newTestLoader(t, 0)
	ctx := context.Background()

	if err := ld.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema() error = %v", err)
	}
	for _, table := range []string{core.TableCuiles, core.TablePeriodos} {
		ok, err := dialect.SQLite{}.TableExists(ctx, ld.Store().DB(), table)
		if err != nil || !ok {
			t.Errorf("table %s exists = %v, err = %v", table, ok, err)
		}
	}
}

func TestLoader_BatchCommits(t *testing.T) {
	ld, path := newTestLoader(t, 2)
	ctx := context.Background()

	for i, mes := range []string{"2020-01", "2020-02", "2020-03", "2020-04", "2020-05"} {
		if err := ld.InsertPeriodo(ctx, periodo("20123456789", mes)); err != nil {
			t.Fatalf("InsertPeriodo(%d) error = %v", i, err)
		}
	}

	// Two full batches are durable; the fifth row is still pending.
	ld.Close()
	if got := countRows(t, path, core.TablePeriodos); got != 4 {
		t.Errorf("committed periodos = %d, want 4", got)
	}
}

func TestLoader_BatchCommitIncludesCuiles(t *testing.T) {
	ld, path := newTestLoader(t, 1)
	ctx := context.Background()

	if err := ld.InsertCuiles(ctx, core.CuilesRow{CUIT: "1", ANIO: "2020", CUIL: "2", Tipo: "0"}); err != nil {
		t.Fatalf("InsertCuiles() error = %v", err)
	}
	if err := ld.InsertPeriodo(ctx, periodo("1", "2020-01")); err != nil {
		t.Fatalf("InsertPeriodo() error = %v", err)
	}

	// Close without Commit: only what the batch commit made durable remains.
	ld.Close()
	if got := countRows(t, path, core.TableCuiles); got != 1 {
		t.Errorf("cuiles = %d, want 1 committed with the periodos batch", got)
	}
	if got := countRows(t, path, core.TablePeriodos); got != 1 {
		t.Errorf("periodos = %d, want 1", got)
	}
}

func TestLoader_CommitRemainder(t *testing.T) {
	ld, path := newTestLoader(t, 1000)
	ctx := context.Background()

	row := core.CuilesRow{CUIT: "20123456789", ANIO: "2020", CUIL: "27000000001", Tipo: "0"}
	row.Aporte[0] = 100
	if err := ld.InsertCuiles(ctx, row); err != nil {
		t.Fatalf("InsertCuiles() error = %v", err)
	}
	if err := ld.InsertPeriodo(ctx, periodo("20123456789", "2020-01")); err != nil {
		t.Fatalf("InsertPeriodo() error = %v", err)
	}
	if err := ld.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	ld.Close()

	if got := countRows(t, path, core.TableCuiles); got != 1 {
		t.Errorf("cuiles = %d, want 1", got)
	}
	if got := countRows(t, path, core.TablePeriodos); got != 1 {
		t.Errorf("periodos = %d, want 1", got)
	}
	if ld.Inserted(core.TableCuiles) != 1 || ld.Inserted(core.TablePeriodos) != 1 {
		t.Errorf("Inserted() = %d/%d, want 1/1",
			ld.Inserted(core.TableCuiles), ld.Inserted(core.TablePeriodos))
	}
}

func TestLoader_DuplicateKey(t *testing.T) {
	ld, path := newTestLoader(t, 1000)
	ctx := context.Background()

	cuil := core.CuilesRow{CUIT: "1", ANIO: "2020", CUIL: "2", Tipo: "0"}
	if err := ld.InsertCuiles(ctx, cuil); err != nil {
		t.Fatalf("InsertCuiles() error = %v", err)
	}
	if err := ld.InsertPeriodo(ctx, periodo("1", "2020-01")); err != nil {
		t.Fatalf("InsertPeriodo() error = %v", err)
	}

	err := ld.InsertPeriodo(ctx, periodo("1", "2020-01"))
	if !errors.Is(err, core.ErrIntegrity) {
		t.Fatalf("error = %v, want ErrIntegrity", err)
	}

	// The whole open transaction was rolled back.
	if err := ld.Commit(ctx); err != nil {
		t.Fatalf("Commit() after rollback error = %v", err)
	}
	ld.Close()
	if got := countRows(t, path, core.TableCuiles); got != 0 {
		t.Errorf("cuiles after rollback = %d, want 0", got)
	}
	if got := countRows(t, path, core.TablePeriodos); got != 0 {
		t.Errorf("periodos after rollback = %d, want 0", got)
	}
}

func TestLoader_ResetPeriodos(t *testing.T) {
	ld, path := newTestLoader(t, 1000)
	ctx := context.Background()

	for _, mes := range []string{"2020-01", "2020-02", "2020-03"} {
		if err := ld.InsertPeriodo(ctx, periodo("1", mes)); err != nil {
			t.Fatal(err)
		}
	}
	if err := ld.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	ld.Close()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	again := NewLoader(&Store{db: db, dialect: dialect.SQLite{}, target: path}, LoaderOptions{})
	if err := again.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	if err := again.ResetPeriodos(ctx); err != nil {
		t.Fatalf("ResetPeriodos() error = %v", err)
	}
	// Same keys load again without a duplicate error.
	for _, mes := range []string{"2020-01", "2020-02"} {
		if err := again.InsertPeriodo(ctx, periodo("1", mes)); err != nil {
			t.Fatalf("InsertPeriodo() after reset error = %v", err)
		}
	}
	if err := again.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	again.Close()

	if got := countRows(t, path, core.TablePeriodos); got != 2 {
		t.Errorf("periodos after reset = %d, want 2", got)
	}
}

func TestLoader_FeDepo1RoundTrip(t *testing.T) {
	ld, _ := newTestLoader(t, 1000)
	ctx := context.Background()

	paid := time.Date(2020, 2, 10, 0, 0, 0, 0, time.UTC)
	withDate := periodo("1", "2020-01")
	withDate.FeDepo1 = sql.NullTime{Time: paid, Valid: true}

	if err := ld.InsertPeriodo(ctx, withDate); err != nil {
		t.Fatal(err)
	}
	if err := ld.InsertPeriodo(ctx, periodo("1", "2020-02")); err != nil {
		t.Fatal(err)
	}
	if err := ld.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	rows, err := ld.Store().DB().QueryContext(ctx, `SELECT Mes, FeDepo1 FROM periodos ORDER BY Mes`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	got := map[string]sql.NullTime{}
	for rows.Next() {
		var mes string
		var fe sql.NullTime
		if err := rows.Scan(&mes, &fe); err != nil {
			t.Fatal(err)
		}
		got[mes] = fe
	}
	if !got["2020-01"].Valid || !got["2020-01"].Time.Equal(paid) {
		t.Errorf("FeDepo1 2020-01 = %+v, want %v", got["2020-01"], paid)
	}
	if got["2020-02"].Valid {
		t.Errorf("FeDepo1 2020-02 = %+v, want null", got["2020-02"])
	}
}

func TestLoader_UnknownTable(t *testing.T) {
	ld, _ := newTestLoader(t, 0)
	if err := ld.Insert(context.Background(), "nope", core.PeriodoRow{}); err == nil {
		t.Fatal("expected error for unknown table")
	}
}
