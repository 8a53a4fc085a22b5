// Package core provides the domain logic for converting contribution records.
//
// This package is the heart of the converter, containing the record mapping and
// pivot rules independent of any source format, destination engine or
// transport. It can be used by the CLI, the HTTP service, or tests without
// modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Records: flat source rows ([Record]) as produced by the source readers.
//   - Field mapping: [MapCuiles] turns a record into one wide [CuilesRow].
//   - Pivot: [PivotPeriodos] turns a record into up to twelve [PeriodoRow]s.
//   - Table Definitions: destination tables registered via [Register].
//   - Errors: sentinel errors and user-facing messages via [MapError].
//
// # Table Registry
//
// Destination tables are registered at init time from the tables subpackage.
// Each [TableDefinition] describes columns, primary key and load policy:
//
//	core.Register(core.TableDefinition{
//	    Info: core.TableInfo{Key: "periodos", Columns: cols, PrimaryKey: []string{"CUIT", "Mes"}},
//	    Values: periodoValues,
//	    ResetBeforeLoad: true,
//	    BatchCommit: true,
//	})
//
// # Pivot
//
// Month-templated source columns are resolved through the static
// [PeriodFields] table, expanded once for months 1..12. A month produces a
// row when any of its seven source columns holds a value.
//
// # Error Handling
//
// Failures are reported with sentinel errors ([ErrSourceNotFound],
// [ErrIntegrity], ...) wrapped with context. [MapError] maps them to
// user-friendly messages with a support code:
//
//   - CNV001: Destination engine missing
//   - SRC001-SRC004: Source errors
//   - DB001-DB006: Database errors
//   - VAL001-VAL002: Value errors
//   - JOB001-JOB003: Conversion job errors
package core
