package core

import "fmt"

// periodField maps one month-templated source column family onto PeriodoRow.
// Mirror names a second destination column that receives the same value.
type periodField struct {
	Prefix string
	Target string
	Mirror string
	set    func(row *PeriodoRow, v any) error
}

// PeriodFields is the static pivot table. Source columns are Prefix followed by
// the month number without padding: APORTE_381_1 .. APORTE_381_12.
var PeriodFields = []periodField{
	{Prefix: "APORTE_381_", Target: "Aporte", set: func(r *PeriodoRow, v any) (err error) {
		r.Aporte, err = ToFloat(v)
		return err
	}},
	{Prefix: "CONTRIB_401_", Target: "Contribucion", set: func(r *PeriodoRow, v any) (err error) {
		r.Contribucion, err = ToFloat(v)
		return err
	}},
	{Prefix: "APORTE_Y_CONTR_", Target: "Depo1", set: func(r *PeriodoRow, v any) (err error) {
		r.Depo1, err = ToFloat(v)
		return err
	}},
	{Prefix: "FECHAPAGO_PAG_", Target: "FeDepo1", set: func(r *PeriodoRow, v any) (err error) {
		r.FeDepo1, err = ToTime(v)
		return err
	}},
	{Prefix: "RETENCION_471_", Target: "Retencion", set: func(r *PeriodoRow, v any) (err error) {
		r.Retencion, err = ToFloat(v)
		return err
	}},
	{Prefix: "BENEF_CANTPER_", Target: "Afiliados", Mirror: "CantMayor", set: func(r *PeriodoRow, v any) error {
		n, err := ToInt(v)
		if err != nil {
			return err
		}
		r.Afiliados, r.CantMayor = n, n
		return nil
	}},
	{Prefix: "BENEF_NR_IMPREM_", Target: "Remuneracion", Mirror: "RemuMayor", set: func(r *PeriodoRow, v any) error {
		f, err := ToFloat(v)
		if err != nil {
			return err
		}
		r.Remuneracion, r.RemuMayor = f, f
		return nil
	}},
}

// periodColumns[m][i] is the source column of PeriodFields[i] for month m+1.
var periodColumns = func() [Months][]string {
	var cols [Months][]string
	for m := range cols {
		cols[m] = make([]string, len(PeriodFields))
		for i, f := range PeriodFields {
			cols[m][i] = fmt.Sprintf("%s%d", f.Prefix, m+1)
		}
	}
	return cols
}()

// PeriodColumn returns the source column name of PeriodFields[field] for
// month (1-12).
func PeriodColumn(field, month int) string {
	return periodColumns[month-1][field]
}

// FormatMes formats the periodos month key, e.g. 2020-01.
func FormatMes(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// PeriodoKey extracts the CUIT and fiscal year a record pivots under.
// ok is false when CUIT is null or empty or ANIO is not an integer year.
func PeriodoKey(rec Record) (cuit string, year int, ok bool) {
	v, present := rec.Lookup(ColCUIT)
	if !present {
		return "", 0, false
	}
	cuit = ToText(v)
	if cuit == "" {
		return "", 0, false
	}
	anio, present := rec.Lookup(ColANIO)
	if !present {
		return "", 0, false
	}
	year, ok = ParseYear(anio)
	return cuit, year, ok
}

// PivotPeriodos expands one source record into zero to twelve periodos rows.
//
// Records without a usable CUIT/ANIO produce no rows. A month produces a row
// when any of its templated source columns is present and non-null; columns
// missing from that month stay zero (or null for FeDepo1). CantMenor,
// RemuMenor and Intepago are always zero.
func PivotPeriodos(rec Record) ([]PeriodoRow, error) {
	cuit, year, ok := PeriodoKey(rec)
	if !ok {
		return nil, nil
	}

	var rows []PeriodoRow
	for m := 1; m <= Months; m++ {
		row := PeriodoRow{
			CUIT: cuit,
			Mes:  FormatMes(year, m),
		}

		found := false
		for i, f := range PeriodFields {
			col := PeriodColumn(i, m)
			v, present := rec.Lookup(col)
			if !present {
				continue
			}
			found = true
			if err := f.set(&row, v); err != nil {
				return nil, fmt.Errorf("%s: %w", col, err)
			}
		}

		if found {
			rows = append(rows, row)
		}
	}

	return rows, nil
}
