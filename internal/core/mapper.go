package core

import "fmt"

// Source and destination column names for the cuiles table.
const (
	ColCUIT = "CUIT"
	ColANIO = "ANIO"
	ColCUIL = "CUIL"

	SourceTipo = "TIPO_BENEFICIARIO"
	ColTipo    = "tipo"

	// TipoDefault is stored when the source has no beneficiary type.
	TipoDefault = "0"
)

// monthNames are the Spanish month suffixes used by the wide source columns.
var monthNames = [Months]string{
	"ENERO", "FEBRERO", "MARZO", "ABRIL", "MAYO", "JUNIO",
	"JULIO", "AGOSTO", "SEPTIEMBRE", "OCTUBRE", "NOVIEMBRE", "DICIEMBRE",
}

// cuilesMonthField maps one month's source columns to their slot in CuilesRow.
type cuilesMonthField struct {
	RemuneracionSource string // REMUNERACION_ENERO
	AporteSource       string // APORTE_ENERO
	RemuneracionDest   string // REMUNERACION1
	AporteDest         string // APORTE1
}

// CuilesMonthFields is the static source-to-destination table for the wide
// month columns, index 0 is January.
var CuilesMonthFields = func() [Months]cuilesMonthField {
	var fields [Months]cuilesMonthField
	for i, name := range monthNames {
		fields[i] = cuilesMonthField{
			RemuneracionSource: "REMUNERACION_" + name,
			AporteSource:       "APORTE_" + name,
			RemuneracionDest:   fmt.Sprintf("REMUNERACION%d", i+1),
			AporteDest:         fmt.Sprintf("APORTE%d", i+1),
		}
	}
	return fields
}()

// MapCuiles maps one source record onto the wide cuiles row.
//
// CUIT, ANIO and CUIL pass through as text and must all be present; a record
// without them fails with ErrMissingKey instead of producing a keyless row.
// Month amounts and the beneficiary type default to zero when the source column
// is missing or null.
func MapCuiles(rec Record) (CuilesRow, error) {
	var row CuilesRow

	for _, key := range []struct {
		col string
		dst *string
	}{
		{ColCUIT, &row.CUIT},
		{ColANIO, &row.ANIO},
		{ColCUIL, &row.CUIL},
	} {
		v, ok := rec.Lookup(key.col)
		if !ok {
			return CuilesRow{}, fmt.Errorf("%w: %s", ErrMissingKey, key.col)
		}
		*key.dst = ToText(v)
		if *key.dst == "" {
			return CuilesRow{}, fmt.Errorf("%w: %s is empty", ErrMissingKey, key.col)
		}
	}

	for i, f := range CuilesMonthFields {
		var err error
		if row.Remuneracion[i], err = monthAmount(rec, f.RemuneracionSource); err != nil {
			return CuilesRow{}, err
		}
		if row.Aporte[i], err = monthAmount(rec, f.AporteSource); err != nil {
			return CuilesRow{}, err
		}
	}

	row.Tipo = TipoDefault
	if v, ok := rec.Lookup(SourceTipo); ok {
		if s := ToText(v); s != "" {
			row.Tipo = s
		}
	}

	return row, nil
}

func monthAmount(rec Record, col string) (float64, error) {
	v, ok := rec.Lookup(col)
	if !ok {
		return 0, nil
	}
	f, err := ToFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", col, err)
	}
	return f, nil
}
