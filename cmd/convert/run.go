package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/JonMunkholm/cuiles/internal/config"
	"github.com/JonMunkholm/cuiles/internal/core"
	_ "github.com/JonMunkholm/cuiles/internal/core/tables" // Register destination tables
	"github.com/JonMunkholm/cuiles/internal/dialect"
	"github.com/JonMunkholm/cuiles/internal/logging"
	"github.com/JonMunkholm/cuiles/internal/pipeline"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var runFlags struct {
	cuiles         string
	periodos       string
	dest           string
	dialect        string
	table          string
	accessTemplate string
	batchSize      int
	jsonOut        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one conversion",
	Long: `Run reads the cuiles source and/or the periodos source and writes a new
destination database. An existing destination file is replaced.

Records without CUIT, ANIO or CUIL are skipped and reported.`,
	Example: `  convert run --cuiles aportes.odb --dest cuiles.mdb
  convert run --cuiles aportes.odb --periodos periodos.accdb --dest out.sqlite --dialect sqlite`,
	Args: cobra.NoArgs,
	RunE: runConversion,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.cuiles, "cuiles", "", "source for the cuiles table (.odb, .accdb, .mdb, .sqlite)")
	f.StringVar(&runFlags.periodos, "periodos", "", "source for the periodos table")
	f.StringVar(&runFlags.dest, "dest", "", "destination file, or postgres URL (default: DEST_PATH)")
	f.StringVar(&runFlags.dialect, "dialect", "", "destination engine: access, sqlite or postgres (default: DEST_DIALECT)")
	f.StringVar(&runFlags.table, "table", "", "table to read from native sources (default: first user table)")
	f.StringVar(&runFlags.accessTemplate, "access-template", "", "blank .accdb copied to create Access destinations")
	f.IntVar(&runFlags.batchSize, "batch-size", 0, "periodos rows per commit (default: LOAD_BATCH_SIZE)")
	f.BoolVar(&runFlags.jsonOut, "json", false, "print the result as JSON")

	rootCmd.AddCommand(runCmd)
}

func runConversion(cmd *cobra.Command, args []string) error {
	// A missing .env is fine; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	req := pipeline.Request{
		CuilesSource:   runFlags.cuiles,
		PeriodosSource: runFlags.periodos,
		Destination:    runFlags.dest,
	}
	if req.Destination == "" && opts.Destination == "" {
		opts.Destination = defaultDestination(opts.Dialect)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := pipeline.Run(ctx, opts, req, func(p pipeline.Progress) {
		logger.Debug("progress", "phase", p.Phase, "percent", p.Percent, "message", p.Message)
	})

	if runFlags.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printSummary(cmd.OutOrStdout(), res)
	}

	if runErr != nil {
		return fmt.Errorf("%s", core.FormatUserError(runErr))
	}
	return nil
}

// applyFlags overrides configuration with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("dialect") {
		cfg.Destination.Dialect = runFlags.dialect
	}
	if f.Changed("table") {
		cfg.Source.Table = runFlags.table
	}
	if f.Changed("access-template") {
		cfg.Destination.AccessTemplate = runFlags.accessTemplate
	}
	if f.Changed("batch-size") {
		cfg.Load.BatchSize = runFlags.batchSize
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}

// defaultDestination places the output in the temp dir, named after the
// destination engine's usual extension.
func defaultDestination(d dialect.Dialect) string {
	ext := ".mdb"
	if _, ok := d.(dialect.SQLite); ok {
		ext = ".sqlite"
	}
	return filepath.Join(os.TempDir(), "cuiles"+ext)
}

func printSummary(w io.Writer, res *pipeline.Result) {
	if res == nil {
		return
	}
	status := "ok"
	if !res.Succeeded() {
		status = "failed (" + res.ErrorCode + ")"
	}
	fmt.Fprintf(w, "Conversion %s\n", status)
	fmt.Fprintf(w, "  Destination:       %s\n", res.Destination)
	fmt.Fprintf(w, "  Records read:      %d\n", res.RecordsRead)
	fmt.Fprintf(w, "  Cuiles inserted:   %d\n", res.CuilesInserted)
	fmt.Fprintf(w, "  Periodos inserted: %d\n", res.PeriodosInserted)
	fmt.Fprintf(w, "  Skipped:           %d\n", res.SkippedCount)
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "    %s #%d: %s\n", filepath.Base(s.Source), s.Index, s.Reason)
	}
	fmt.Fprintf(w, "  Duration:          %s\n", res.Duration.Round(time.Millisecond))
}
