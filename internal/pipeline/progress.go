package pipeline

import "time"

// Phase represents the current stage of a conversion run.
type Phase string

const (
	PhaseStarting   Phase = "starting"
	PhaseCreating   Phase = "creating"
	PhaseExtracting Phase = "extracting"
	PhaseMapping    Phase = "mapping"
	PhaseLoading    Phase = "loading"
	PhaseCommitting Phase = "committing"
	PhaseComplete   Phase = "complete"
	PhaseFailed     Phase = "failed"
)

// Done reports whether the phase is terminal.
func (p Phase) Done() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// Progress is a snapshot of a running conversion.
type Progress struct {
	JobID            string `json:"job_id,omitempty"`
	Phase            Phase  `json:"phase"`
	Percent          int    `json:"percent"`
	Message          string `json:"message,omitempty"`
	Source           string `json:"source,omitempty"`
	RecordsRead      int    `json:"records_read"`
	CuilesInserted   int    `json:"cuiles_inserted"`
	PeriodosInserted int    `json:"periodos_inserted"`
	Skipped          int    `json:"skipped"`
	Error            string `json:"error,omitempty"`
}

// SkippedRecord describes a source record that produced no rows.
type SkippedRecord struct {
	Source string `json:"source"`
	Index  int    `json:"index"` // 0-based position in the source table
	Reason string `json:"reason"`
}

// MaxSkippedDetails caps how many skipped records are listed in a Result.
// Skipped counts are always complete.
var MaxSkippedDetails = 100

// Result contains the outcome of a conversion run.
type Result struct {
	JobID            string          `json:"job_id,omitempty"`
	Destination      string          `json:"destination"`
	RecordsRead      int             `json:"records_read"`
	CuilesInserted   int             `json:"cuiles_inserted"`
	PeriodosInserted int             `json:"periodos_inserted"`
	SkippedCount     int             `json:"skipped_count"`
	Skipped          []SkippedRecord `json:"skipped,omitempty"`
	Duration         time.Duration   `json:"duration"`
	Error            string          `json:"error,omitempty"`
	ErrorCode        string          `json:"error_code,omitempty"`
}

// Succeeded reports whether the run finished without error.
func (r *Result) Succeeded() bool {
	return r != nil && r.Error == ""
}
