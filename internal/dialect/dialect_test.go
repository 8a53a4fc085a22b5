package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

var periodosInfo = core.TableInfo{
	Key: "periodos",
	Columns: []core.Column{
		{Name: "CUIT", Type: core.ColText, Size: 11},
		{Name: "Mes", Type: core.ColText, Size: 7},
		{Name: "Afiliados", Type: core.ColLong},
		{Name: "Aporte", Type: core.ColDouble},
		{Name: "FeDepo1", Type: core.ColDateTime},
	},
	PrimaryKey: []string{"CUIT", "Mes"},
}

func TestCreateTableSQL_Access(t *testing.T) {
	got := CreateTableSQL(NewAccess(), periodosInfo)
	want := "CREATE TABLE periodos (\n" +
		"    CUIT TEXT(11),\n" +
		"    Mes TEXT(7),\n" +
		"    Afiliados LONG,\n" +
		"    Aporte DOUBLE,\n" +
		"    FeDepo1 DATETIME,\n" +
		"    PRIMARY KEY (CUIT, Mes)\n" +
		")"
	if got != want {
		t.Errorf("CreateTableSQL() =\n%s\nwant\n%s", got, want)
	}
}

func TestCreateTableSQL_Postgres(t *testing.T) {
	got := CreateTableSQL(Postgres{}, periodosInfo)
	for _, frag := range []string{
		`CREATE TABLE "periodos"`,
		`"CUIT" VARCHAR(11)`,
		`"Afiliados" BIGINT`,
		`"Aporte" DOUBLE PRECISION`,
		`"FeDepo1" TIMESTAMP`,
		`PRIMARY KEY ("CUIT", "Mes")`,
	} {
		if !strings.Contains(got, frag) {
			t.Errorf("CreateTableSQL() missing %q in\n%s", frag, got)
		}
	}
}

func TestInsertSQL(t *testing.T) {
	tests := []struct {
		name string
		d    Dialect
		want string
	}{
		{
			name: "sqlite",
			d:    SQLite{},
			want: `INSERT INTO "periodos" ("CUIT", "Mes", "Afiliados", "Aporte", "FeDepo1") VALUES (?, ?, ?, ?, ?)`,
		},
		{
			name: "postgres",
			d:    Postgres{},
			want: `INSERT INTO "periodos" ("CUIT", "Mes", "Afiliados", "Aporte", "FeDepo1") VALUES ($1, $2, $3, $4, $5)`,
		},
		{
			name: "access",
			d:    NewAccess(),
			want: `INSERT INTO periodos (CUIT, Mes, Afiliados, Aporte, FeDepo1) VALUES (?, ?, ?, ?, ?)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InsertSQL(tt.d, periodosInfo); got != tt.want {
				t.Errorf("InsertSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccessQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cuiles", "cuiles"},
		{"REMUNERACION1", "REMUNERACION1"},
		{"VW_DIBENEF_ANNIO_AP_ADIC_DEL - CUILES 2015", "[VW_DIBENEF_ANNIO_AP_ADIC_DEL - CUILES 2015]"},
		{"odd]name", "[odd]]name]"},
	}
	for _, tt := range tests {
		if got := NewAccess().Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAccessDSNs(t *testing.T) {
	dsns := NewAccess().DSNs(`C:\data\out.accdb`)
	if len(dsns) != 2 {
		t.Fatalf("len(DSNs) = %d, want 2", len(dsns))
	}
	want := `DRIVER={Microsoft Access Driver (*.mdb, *.accdb)};DBQ=C:\data\out.accdb;`
	if dsns[0] != want {
		t.Errorf("DSNs[0] = %q, want %q", dsns[0], want)
	}

	custom := NewAccess("My Driver").DSNs("x.mdb")
	if len(custom) != 1 || !strings.Contains(custom[0], "{My Driver}") {
		t.Errorf("custom DSNs = %v", custom)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	sqliteDup := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}
	sqliteNotNull := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}
	pgDup := &pgconn.PgError{Code: "23505"}
	pgOther := &pgconn.PgError{Code: "42P01"}

	tests := []struct {
		name string
		d    Dialect
		err  error
		want bool
	}{
		{"sqlite primary key", SQLite{}, sqliteDup, true},
		{"sqlite wrapped", SQLite{}, fmt.Errorf("insert: %w", sqliteDup), true},
		{"sqlite not null", SQLite{}, sqliteNotNull, false},
		{"sqlite plain error", SQLite{}, errors.New("boom"), false},
		{"postgres unique", Postgres{}, pgDup, true},
		{"postgres other", Postgres{}, pgOther, false},
		{"access sqlstate", NewAccess(), errors.New("SQLExecute: {23000} [Microsoft][ODBC Microsoft Access Driver] key violation"), true},
		{"access other", NewAccess(), errors.New("SQLExecute: {42S02} table not found"), false},
		{"access nil", NewAccess(), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.IsDuplicateKey(tt.err); got != tt.want {
				t.Errorf("IsDuplicateKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"access", "access", false},
		{"SQLite", "sqlite", false},
		{" postgres ", "postgres", false},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		d, err := ByName(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ByName(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && d.Name() != tt.want {
			t.Errorf("ByName(%q).Name() = %q, want %q", tt.in, d.Name(), tt.want)
		}
	}
}

func TestDriverRegistered(t *testing.T) {
	if !DriverRegistered("sqlite3") {
		t.Error("sqlite3 driver should be registered")
	}
	if !DriverRegistered("pgx") {
		t.Error("pgx driver should be registered")
	}
	if DriverRegistered("no-such-driver") {
		t.Error("unexpected driver registered")
	}
}

func TestSQLiteTableExists(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "t.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for _, stmt := range []string{
		`CREATE TABLE base (CUIT TEXT)`,
		`CREATE VIEW "filtered view" AS SELECT CUIT FROM base`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	ctx := context.Background()
	for name, want := range map[string]bool{"base": true, "filtered view": true, "missing": false} {
		got, err := SQLite{}.TableExists(ctx, db, name)
		if err != nil {
			t.Fatalf("TableExists(%q) error = %v", name, err)
		}
		if got != want {
			t.Errorf("TableExists(%q) = %v, want %v", name, got, want)
		}
	}

	// Views are readable by name but not listed as user tables.
	tables, err := SQLite{}.ListTables(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || tables[0] != "base" {
		t.Errorf("ListTables() = %v, want [base]", tables)
	}
}
