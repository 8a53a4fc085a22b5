// Package core provides the domain logic for converting contribution records.
// This package has no storage or transport dependencies and can be used by any frontend.
package core

import (
	"database/sql"
	"strings"
)

// Record is one flat source row: column name to loosely typed scalar
// (string, int64, float64, time.Time, bool or nil).
type Record map[string]any

// Lookup returns the value for col when it is present and non-nil.
func (r Record) Lookup(col string) (any, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether col is present in the record, even if null.
func (r Record) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// Months is the number of month slots in a fiscal year.
const Months = 12

// CuilesRow is one wide per-year row of the cuiles table.
// Month arrays are indexed from 0 (January) to 11 (December).
type CuilesRow struct {
	CUIT         string
	ANIO         string
	CUIL         string
	Remuneracion [Months]float64
	Aporte       [Months]float64
	Tipo         string
}

// Key returns the primary key triple formatted for messages.
func (r CuilesRow) Key() string {
	return strings.Join([]string{r.CUIT, r.ANIO, r.CUIL}, "/")
}

// PeriodoRow is one tall per-month row of the periodos table.
type PeriodoRow struct {
	CUIT         string
	Mes          string // YYYY-MM
	Afiliados    int64
	Remuneracion float64
	Aporte       float64
	Contribucion float64
	Depo1        float64
	FeDepo1      sql.NullTime
	Retencion    float64
	CantMenor    int64
	RemuMenor    float64
	CantMayor    int64
	RemuMayor    float64
	Intepago     float64
}

// Key returns the primary key pair formatted for messages.
func (r PeriodoRow) Key() string {
	return r.CUIT + "/" + r.Mes
}

// ColumnType is the logical type of a destination column. Dialects render it
// into their own DDL type names.
type ColumnType int

const (
	ColText ColumnType = iota
	ColDouble
	ColLong
	ColDateTime
)

// Column describes a single destination column.
type Column struct {
	Name string
	Type ColumnType
	Size int // Text length, 0 for unbounded
}

// TableInfo contains the shape of a destination table.
type TableInfo struct {
	Key        string   // Table name: "cuiles"
	Label      string   // Display name
	Columns    []Column // In insert order
	PrimaryKey []string
}

// ColumnNames returns the column names in insert order.
func (t TableInfo) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ValuesFunc converts a typed row to insert arguments.
// The returned slice must match TableInfo.Columns in order.
type ValuesFunc func(row any) []any

// KeyFunc describes a typed row's primary key for error messages.
type KeyFunc func(row any) string

// TableDefinition contains everything needed to load one destination table.
type TableDefinition struct {
	Info   TableInfo
	Values ValuesFunc
	Key    KeyFunc

	// ResetBeforeLoad deletes existing rows before a load (full refresh).
	ResetBeforeLoad bool

	// BatchCommit commits every configured batch of rows instead of only at the end.
	BatchCommit bool
}
