// Package pipeline sequences a conversion: read the sources, map and pivot
// their records, and load the destination. Run executes one conversion
// synchronously; Service runs them as background jobs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/JonMunkholm/cuiles/internal/dialect"
	"github.com/JonMunkholm/cuiles/internal/logging"
	"github.com/JonMunkholm/cuiles/internal/source"
	"github.com/JonMunkholm/cuiles/internal/store"
)

// Options configures how runs read and write.
type Options struct {
	Source      source.Options
	Dialect     dialect.Dialect
	Store       store.Options
	BatchSize   int
	Destination string // used when a Request leaves it empty

	// SourceDir and DestDir bound the paths a Request may name. See Confine.
	SourceDir string
	DestDir   string
}

// Request names the inputs and output of one run.
type Request struct {
	CuilesSource   string `json:"cuiles_source"`
	PeriodosSource string `json:"periodos_source"`
	Destination    string `json:"destination"`
}

// Validate checks that at least one source is given.
func (r Request) Validate() error {
	if r.CuilesSource == "" && r.PeriodosSource == "" {
		return fmt.Errorf("%w: at least one of cuiles_source or periodos_source is required", core.ErrInvalidRequest)
	}
	return nil
}

// Run executes one conversion. It trusts the paths in req; Service confines
// them first. report, if non-nil, receives progress snapshots on the calling
// goroutine. On failure the returned Result carries
// the error and its user-facing code alongside the returned error.
func Run(ctx context.Context, opts Options, req Request, report func(Progress)) (*Result, error) {
	r := &runner{
		opts:   opts,
		req:    req,
		report: report,
		result: &Result{Destination: req.Destination},
	}
	if r.result.Destination == "" {
		r.result.Destination = opts.Destination
	}
	r.logger = logging.WithFields(ctx, "destination", r.result.Destination)

	start := time.Now()
	err := r.run(ctx)
	r.result.Duration = time.Since(start)

	if err != nil {
		msg := core.MapError(err)
		r.result.Error = err.Error()
		r.result.ErrorCode = msg.Code
		r.progress.Phase = PhaseFailed
		r.progress.Percent = 0
		r.progress.Error = err.Error()
		r.progress.Message = msg.Message
		r.emit()

		r.logger.Error("conversion failed",
			"code", msg.Code,
			"error", err,
		)
		return r.result, err
	}

	r.set(PhaseComplete, 100, "Conversion complete")
	r.logger.Info("conversion complete",
		"records", r.result.RecordsRead,
		"cuiles", r.result.CuilesInserted,
		"periodos", r.result.PeriodosInserted,
		"skipped", r.result.SkippedCount,
		"duration", r.result.Duration.Round(time.Millisecond),
	)
	return r.result, nil
}

type runner struct {
	opts     Options
	req      Request
	report   func(Progress)
	result   *Result
	progress Progress
	logger   *slog.Logger
}

func (r *runner) run(ctx context.Context) error {
	r.set(PhaseStarting, 0, "Starting conversion")

	if err := r.req.Validate(); err != nil {
		return err
	}
	if r.result.Destination == "" {
		return fmt.Errorf("%w: destination is required", core.ErrInvalidRequest)
	}
	if r.opts.Dialect == nil {
		return errors.New("pipeline: no destination dialect configured")
	}
	// Creating the destination replaces it, so a bad source must fail first.
	for _, src := range []string{r.req.CuilesSource, r.req.PeriodosSource} {
		if src == "" {
			continue
		}
		if err := source.Check(src); err != nil {
			return err
		}
	}

	r.set(PhaseCreating, 10, "Creating destination")
	st, err := store.Create(ctx, r.opts.Dialect, r.result.Destination, r.opts.Store)
	if err != nil {
		return err
	}
	ld := store.NewLoader(st, store.LoaderOptions{BatchSize: r.opts.BatchSize})
	defer ld.Close()

	if err := ld.EnsureSchema(ctx); err != nil {
		return err
	}
	r.set(PhaseCreating, 20, "Destination ready")

	if r.req.CuilesSource != "" {
		if err := r.loadCuiles(ctx, ld); err != nil {
			return err
		}
	}
	if r.req.PeriodosSource != "" {
		if err := r.loadPeriodos(ctx, ld); err != nil {
			return err
		}
	}

	r.set(PhaseCommitting, 95, "Committing")
	return ld.Commit(ctx)
}

func (r *runner) loadCuiles(ctx context.Context, ld *store.Loader) error {
	records, err := r.read(ctx, r.req.CuilesSource, 30)
	if err != nil {
		return err
	}

	r.set(PhaseMapping, 50, "Loading cuiles")
	for i, rec := range records {
		row, err := core.MapCuiles(rec)
		if err != nil {
			r.skip(r.req.CuilesSource, i, err)
			continue
		}
		if err := ld.InsertCuiles(ctx, row); err != nil {
			return err
		}
		r.result.CuilesInserted++
		r.progress.CuilesInserted = r.result.CuilesInserted
	}

	r.set(PhaseLoading, 60, fmt.Sprintf("Loaded %d cuiles rows", r.result.CuilesInserted))
	return nil
}

func (r *runner) loadPeriodos(ctx context.Context, ld *store.Loader) error {
	records, err := r.read(ctx, r.req.PeriodosSource, 65)
	if err != nil {
		return err
	}

	if err := ld.ResetPeriodos(ctx); err != nil {
		return err
	}

	r.set(PhaseLoading, 70, "Loading periodos")
	total := len(records)
	for i, rec := range records {
		if _, _, ok := core.PeriodoKey(rec); !ok {
			r.skip(r.req.PeriodosSource, i, core.ErrMissingKey)
			continue
		}
		rows, err := core.PivotPeriodos(rec)
		if err != nil {
			r.skip(r.req.PeriodosSource, i, err)
			continue
		}
		for _, row := range rows {
			if err := ld.InsertPeriodo(ctx, row); err != nil {
				return err
			}
			r.result.PeriodosInserted++
		}
		r.progress.PeriodosInserted = r.result.PeriodosInserted

		if pct := 70 + 20*(i+1)/total; pct > r.progress.Percent {
			r.set(PhaseLoading, pct, fmt.Sprintf("Processed %d of %d records", i+1, total))
		}
	}
	return nil
}

// read loads every record of path and reports it at percent.
func (r *runner) read(ctx context.Context, path string, percent int) ([]core.Record, error) {
	r.progress.Source = filepath.Base(path)
	r.set(PhaseExtracting, percent, "Reading "+filepath.Base(path))

	records, table, err := source.ReadFile(ctx, path, r.opts.Source)
	if err != nil {
		return nil, err
	}

	r.result.RecordsRead += len(records)
	r.progress.RecordsRead = r.result.RecordsRead
	r.logger.Info("source read",
		"source", path,
		"table", table,
		"records", len(records),
	)
	return records, nil
}

func (r *runner) skip(src string, index int, err error) {
	r.result.SkippedCount++
	r.progress.Skipped = r.result.SkippedCount
	if len(r.result.Skipped) < MaxSkippedDetails {
		r.result.Skipped = append(r.result.Skipped, SkippedRecord{
			Source: filepath.Base(src),
			Index:  index,
			Reason: err.Error(),
		})
	}
	r.logger.Warn("record skipped",
		"source", src,
		"index", index,
		"reason", err,
	)
}

func (r *runner) set(phase Phase, percent int, message string) {
	r.progress.Phase = phase
	r.progress.Percent = percent
	r.progress.Message = message
	r.emit()
}

func (r *runner) emit() {
	if r.report != nil {
		r.report(r.progress)
	}
}
