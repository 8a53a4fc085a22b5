package tables

import (
	"github.com/JonMunkholm/cuiles/internal/core"
)

func init() {
	registerPeriodos()
}

func registerPeriodos() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   core.TablePeriodos,
			Label: "Periodos",
			Columns: []core.Column{
				{Name: "CUIT", Type: core.ColText, Size: 11},
				{Name: "Mes", Type: core.ColText, Size: 7},
				{Name: "Afiliados", Type: core.ColLong},
				{Name: "Remuneracion", Type: core.ColDouble},
				{Name: "Aporte", Type: core.ColDouble},
				{Name: "Contribucion", Type: core.ColDouble},
				{Name: "Depo1", Type: core.ColDouble},
				{Name: "FeDepo1", Type: core.ColDateTime},
				{Name: "Retencion", Type: core.ColDouble},
				{Name: "CantMenor", Type: core.ColLong},
				{Name: "RemuMenor", Type: core.ColDouble},
				{Name: "CantMayor", Type: core.ColLong},
				{Name: "RemuMayor", Type: core.ColDouble},
				{Name: "intepago", Type: core.ColDouble},
			},
			PrimaryKey: []string{"CUIT", "Mes"},
		},
		Values: func(row any) []any {
			r := row.(core.PeriodoRow)
			return []any{
				r.CUIT,
				r.Mes,
				r.Afiliados,
				r.Remuneracion,
				r.Aporte,
				r.Contribucion,
				r.Depo1,
				r.FeDepo1,
				r.Retencion,
				r.CantMenor,
				r.RemuMenor,
				r.CantMayor,
				r.RemuMayor,
				r.Intepago,
			}
		},
		Key: func(row any) string {
			return row.(core.PeriodoRow).Key()
		},
		ResetBeforeLoad: true,
		BatchCommit:     true,
	})
}
