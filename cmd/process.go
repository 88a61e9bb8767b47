// =============================================================================
// DIAN Invoice Consolidator - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs one consolidation.
//
// COMMAND USAGE:
//   facturas process [flags]
//
// FLAGS:
//   --dry-run     : Process and summarize without writing the workbook or logs
//   --archive     : Move processed inputs to the archive directory
//   --file        : Process only the given archive or XML file (repeatable)
//   --workers     : Number of documents processed at once
//
// PROCESSING PIPELINE:
//   1. Load configuration, conversion rules and the product catalog
//   2. Discover ZIP archives and loose XML files (or take --file inputs)
//   3. Read every XML invoice out of the inputs
//   4. Parse and normalize each invoice, skipping malformed ones
//   5. Apply the reporting exclusions
//   6. Write the consolidated workbook
//   7. Archive processed inputs
//   8. Write the error log and run summary
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/batch"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/config"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/normalizer"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/report"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/rules"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/source"
	"github.com/ginjaninja78/dian-invoice-consolidator/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// processOptions holds the command-line overrides of one run.
type processOptions struct {
	// DryRun skips every write: workbook, logs and archival.
	DryRun bool

	// Archive moves processed inputs to the archive directory.
	Archive bool

	// Files replaces input discovery with an explicit list.
	Files []string

	// Workers overrides max_workers when positive.
	Workers int
}

var processFlags processOptions

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Consolidate invoice archives into one workbook",
	Long: `The process command reads every ZIP archive in the input directory (and
every loose XML file in the XML directory), extracts each electronic invoice,
converts its line items with the supplier conversion rules and writes one
consolidated workbook to the output directory.

Invoices that cannot be read are skipped:
  - They are listed in the workbook's "Errores" sheet
  - An error log is written to the log directory
  - Processing continues with the remaining invoices

A missing rules file is not an error: lines are reported unconverted.
An invalid rules file aborts the run before any invoice is read.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("archive") {
			cfg.ArchiveOnSuccess = processFlags.Archive
		}
		_, err = runProcess(cmd.Context(), cfg, processFlags, log, cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&processFlags.DryRun,
		"dry-run",
		false,
		"Process and summarize without writing any file",
	)

	processCmd.Flags().BoolVar(
		&processFlags.Archive,
		"archive",
		false,
		"Move processed inputs to the archive directory (overrides archive_on_success)",
	)

	processCmd.Flags().StringSliceVar(
		&processFlags.Files,
		"file",
		nil,
		"Process only this archive or XML file (repeatable)",
	)

	processCmd.Flags().IntVar(
		&processFlags.Workers,
		"workers",
		0,
		"Number of documents processed at once (default from max_workers)",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess runs the consolidation pipeline.
//
// PARAMETERS:
//   - ctx: Cancels the run.
//   - cfg: The loaded configuration.
//   - opts: Command-line overrides.
//   - log: The logger handed to components.
//   - out: Where the human-readable progress and summary are printed.
//
// RETURNS:
//   - The run summary.
//   - An error for configuration or output problems. Skipped invoices are
//     not errors.
func runProcess(ctx context.Context, cfg *config.Config, opts processOptions, log *zap.Logger, out io.Writer) (utils.RunSummary, error) {
	summary := utils.RunSummary{
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
		RulesFile: cfg.RulesFile,
		DryRun:    opts.DryRun,
	}
	log = log.With(zap.String("run_id", summary.RunID))

	fmt.Fprintln(out, "=== DIAN Invoice Consolidator ===")

	fm := utils.NewFileManager(cfg.InputDir, cfg.XMLDir, cfg.OutputDir, cfg.ArchiveDir, cfg.LogDir)
	if !opts.DryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return summary, err
		}
	}

	// =========================================================================
	// STEP 1: LOAD RULES AND CATALOG
	// =========================================================================

	table, catalog, err := loadTables(cfg, log)
	if err != nil {
		return summary, err
	}
	summary.RulesCount = table.Len()
	fmt.Fprintf(out, "Loaded %d conversion rule(s) from %s\n", table.Len(), cfg.RulesFile)

	// =========================================================================
	// STEP 2: DISCOVER INPUTS
	// =========================================================================

	archives, xmlFiles, err := discoverInputs(fm, opts.Files)
	if err != nil {
		return summary, err
	}
	summary.Archives = len(archives)
	summary.XMLFiles = len(xmlFiles)

	if len(archives) == 0 && len(xmlFiles) == 0 {
		fmt.Fprintln(out, "No invoice archives or XML files found.")
		summary.EndTime = time.Now()
		return summary, nil
	}
	fmt.Fprintf(out, "Found %d archive(s) and %d XML file(s)\n", len(archives), len(xmlFiles))

	// =========================================================================
	// STEP 3: READ, PARSE AND NORMALIZE
	// =========================================================================

	docs := append(source.FromArchives(archives), source.FromFiles(xmlFiles)...)

	workers := cfg.MaxWorkers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	processor := batch.New(table,
		batch.WithCatalog(catalog),
		batch.WithLogger(log),
		batch.WithWorkers(workers))

	result := processor.Process(ctx, docs)

	summary.Documents = result.Stats.Documents
	summary.Succeeded = result.Stats.Succeeded
	summary.Failed = result.Stats.Failed
	summary.Lines = result.Stats.Lines
	summary.Converted = result.Stats.Converted
	summary.Failures = result.Failures

	for _, f := range result.Failures {
		fmt.Fprintf(out, "  ✗ %s: %v\n", f.DocumentID, f.Err)
	}

	// =========================================================================
	// STEP 4: FILTER AND WRITE THE REPORT
	// =========================================================================

	filter := report.Filter{
		ExcludeSupplierIDs: cfg.Report.ExcludeSupplierIDs,
		ExcludeProducts:    cfg.Report.ExcludeProducts,
		SkipZeroQuantity:   cfg.Report.SkipZeroQuantity,
	}
	records, dropped := filter.Apply(result.Records)
	summary.Filtered = dropped

	if !opts.DryRun {
		summary.ReportPath = fm.OutputPath(cfg.OutputNameFormat)
		if err := report.Write(summary.ReportPath, records, result.Failures, report.Options{IncludeDetails: cfg.Report.IncludeDetails}); err != nil {
			return summary, err
		}
		log.Info("report written", zap.String("path", summary.ReportPath), zap.Int("rows", len(records)))
	}

	// =========================================================================
	// STEP 5: ARCHIVE INPUTS AND WRITE LOGS
	// =========================================================================

	if !opts.DryRun {
		if cfg.ArchiveOnSuccess && ctx.Err() == nil {
			archiveInputs(fm, append(append([]string{}, archives...), xmlFiles...), log)
		}

		errorLog, err := fm.WriteErrorLog(result.Failures)
		if err != nil {
			log.Warn("failed to write error log", zap.Error(err))
		} else if errorLog != "" {
			fmt.Fprintf(out, "Skipped documents logged to %s\n", errorLog)
		}
	}

	summary.EndTime = time.Now()

	if !opts.DryRun {
		if _, err := fm.WriteSummaryLog(summary); err != nil {
			log.Warn("failed to write summary", zap.Error(err))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, utils.FormatSummary(summary))

	return summary, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// loadTables loads the conversion rules and the optional product catalog.
// A missing rules file yields an empty table and a warning.
func loadTables(cfg *config.Config, log *zap.Logger) (*rules.Table, *normalizer.Catalog, error) {
	var ruleOpts []rules.Option
	if cfg.ExactSupplierMatch {
		ruleOpts = append(ruleOpts, rules.WithExactMatch())
	}

	if !utils.FileExists(cfg.RulesFile) {
		log.Warn("rules file not found, lines are reported unconverted", zap.String("path", cfg.RulesFile))
	}
	table, err := rules.LoadFile(cfg.RulesFile, ruleOpts...)
	if err != nil {
		return nil, nil, err
	}

	var catalog *normalizer.Catalog
	if cfg.ProductNamesFile != "" {
		catalog, err = normalizer.LoadCatalog(cfg.ProductNamesFile)
		if err != nil {
			return nil, nil, err
		}
		if catalog != nil {
			log.Debug("product catalog loaded", zap.String("path", cfg.ProductNamesFile), zap.Int("entries", catalog.Len()))
		}
	}

	return table, catalog, nil
}

// discoverInputs returns the archives and XML files of the run. Explicit
// files replace directory discovery and are split by extension.
func discoverInputs(fm *utils.FileManager, files []string) ([]string, []string, error) {
	if len(files) > 0 {
		var archives, xmlFiles []string
		for _, f := range files {
			if strings.EqualFold(filepath.Ext(f), ".zip") {
				archives = append(archives, f)
			} else {
				xmlFiles = append(xmlFiles, f)
			}
		}
		return archives, xmlFiles, nil
	}

	archives, err := fm.DiscoverArchives()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to discover archives: %w", err)
	}
	xmlFiles, err := fm.DiscoverXML()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to discover XML files: %w", err)
	}
	return archives, xmlFiles, nil
}

// archiveInputs moves every input to the archive directory. Failures are
// logged and leave the input in place.
func archiveInputs(fm *utils.FileManager, paths []string, log *zap.Logger) {
	for _, p := range paths {
		dst, err := fm.ArchiveInputFile(p)
		if err != nil {
			log.Warn("failed to archive input", zap.String("path", p), zap.Error(err))
			continue
		}
		log.Debug("input archived", zap.String("from", p), zap.String("to", dst))
	}
}
