package tables

import (
	"database/sql"
	"testing"
	"time"

	"github.com/JonMunkholm/cuiles/internal/core"
)

func TestTablesRegistered(t *testing.T) {
	for _, key := range []string{core.TableCuiles, core.TablePeriodos} {
		if _, ok := core.Get(key); !ok {
			t.Errorf("table %s not registered", key)
		}
	}
}

func TestCuilesDefinition(t *testing.T) {
	def, _ := core.Get(core.TableCuiles)

	cols := def.Info.ColumnNames()
	if len(cols) != 28 {
		t.Fatalf("len(columns) = %d, want 28", len(cols))
	}
	wantOrder := map[int]string{
		0: "CUIT", 1: "ANIO", 2: "CUIL",
		3: "REMUNERACION1", 4: "APORTE1",
		25: "REMUNERACION12", 26: "APORTE12",
		27: "tipo",
	}
	for i, name := range wantOrder {
		if cols[i] != name {
			t.Errorf("column %d = %q, want %q", i, cols[i], name)
		}
	}
	if def.ResetBeforeLoad || def.BatchCommit {
		t.Error("cuiles must not be reset or batch committed")
	}

	row := core.CuilesRow{CUIT: "1", ANIO: "2020", CUIL: "2", Tipo: "3"}
	row.Remuneracion[0] = 10
	row.Aporte[11] = 20

	vals := def.Values(row)
	if len(vals) != len(cols) {
		t.Fatalf("len(values) = %d, want %d", len(vals), len(cols))
	}
	if vals[3] != 10.0 || vals[26] != 20.0 || vals[27] != "3" {
		t.Errorf("values = %v", vals)
	}
	if got := def.Key(row); got != "1/2020/2" {
		t.Errorf("Key() = %q", got)
	}
}

func TestPeriodosDefinition(t *testing.T) {
	def, _ := core.Get(core.TablePeriodos)

	if len(def.Info.Columns) != 14 {
		t.Fatalf("len(columns) = %d, want 14", len(def.Info.Columns))
	}
	if !def.ResetBeforeLoad || !def.BatchCommit {
		t.Error("periodos must be reset and batch committed")
	}
	if pk := def.Info.PrimaryKey; len(pk) != 2 || pk[0] != "CUIT" || pk[1] != "Mes" {
		t.Errorf("PrimaryKey = %v", pk)
	}

	paid := sql.NullTime{Time: time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC), Valid: true}
	row := core.PeriodoRow{CUIT: "1", Mes: "2020-01", Afiliados: 4, FeDepo1: paid, CantMayor: 4}

	vals := def.Values(row)
	if len(vals) != 14 {
		t.Fatalf("len(values) = %d, want 14", len(vals))
	}
	if vals[2] != int64(4) || vals[7] != paid || vals[11] != int64(4) {
		t.Errorf("values = %v", vals)
	}
	if got := def.Key(row); got != "1/2020-01" {
		t.Errorf("Key() = %q", got)
	}
}
