package tables

import (
	"github.com/JonMunkholm/cuiles/internal/core"
)

func init() {
	registerCuiles()
}

func cuilesColumns() []core.Column {
	cols := []core.Column{
		{Name: core.ColCUIT, Type: core.ColText},
		{Name: core.ColANIO, Type: core.ColText},
		{Name: core.ColCUIL, Type: core.ColText},
	}
	for _, f := range core.CuilesMonthFields {
		cols = append(cols,
			core.Column{Name: f.RemuneracionDest, Type: core.ColDouble},
			core.Column{Name: f.AporteDest, Type: core.ColDouble},
		)
	}
	return append(cols, core.Column{Name: core.ColTipo, Type: core.ColText})
}

func registerCuiles() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:        core.TableCuiles,
			Label:      "CUILES",
			Columns:    cuilesColumns(),
			PrimaryKey: []string{core.ColCUIT, core.ColANIO, core.ColCUIL},
		},
		Values: func(row any) []any {
			r := row.(core.CuilesRow)
			vals := make([]any, 0, 4+2*core.Months)
			vals = append(vals, r.CUIT, r.ANIO, r.CUIL)
			for m := 0; m < core.Months; m++ {
				vals = append(vals, r.Remuneracion[m], r.Aporte[m])
			}
			return append(vals, r.Tipo)
		},
		Key: func(row any) string {
			return row.(core.CuilesRow).Key()
		},
	})
}
