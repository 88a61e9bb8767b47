// =============================================================================
// DIAN Invoice Consolidator - File Manager Utility
// =============================================================================
//
// This module provides the file handling around a consolidation run:
//   - Input discovery (ZIP archives and loose XML invoices)
//   - Archival of processed inputs
//   - Report file naming
//   - Error log and run summary files
//
// ARCHIVAL STRATEGY:
//   - Inputs are moved to the archive directory only after the report has
//     been written, and only when archiving is enabled
//   - An input whose name already exists in the archive gets a numeric
//     suffix instead of overwriting the earlier copy
//   - Inputs that produced failures are archived too: the error log names
//     the offending documents
//
// =============================================================================

package utils

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/invoice"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/types"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for a run.
type FileManager struct {
	// ZipDir holds the delivered ZIP archives.
	ZipDir string

	// XMLDir holds loose XML invoices. Empty disables it.
	XMLDir string

	// OutputDir receives the workbook.
	OutputDir string

	// ArchiveDir receives processed inputs.
	ArchiveDir string

	// LogDir receives error logs and summaries.
	LogDir string

	// UseDateSubdirs archives into ArchiveDir/YYYY/MM/DD.
	UseDateSubdirs bool

	// Now returns the current time. Tests replace it.
	Now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(zipDir, xmlDir, outputDir, archiveDir, logDir string) *FileManager {
	return &FileManager{
		ZipDir:     zipDir,
		XMLDir:     xmlDir,
		OutputDir:  outputDir,
		ArchiveDir: archiveDir,
		LogDir:     logDir,
		Now:        time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all configured directories if they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.ZipDir, fm.XMLDir, fm.OutputDir, fm.ArchiveDir, fm.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// INPUT DISCOVERY
// =============================================================================

// DiscoverArchives lists the .zip files in ZipDir, sorted by name.
func (fm *FileManager) DiscoverArchives() ([]string, error) {
	return listByExtension(fm.ZipDir, ".zip")
}

// DiscoverXML lists the .xml files in XMLDir, sorted by name.
func (fm *FileManager) DiscoverXML() ([]string, error) {
	return listByExtension(fm.XMLDir, ".xml")
}

// listByExtension lists the regular files of dir (not recursive) with the
// given extension, compared case-insensitively. A missing or unset
// directory yields no files.
func listByExtension(dir, ext string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a processed input into the archive directory.
//
// PARAMETERS:
//   - filePath: The archive or XML file to move.
//
// RETURNS:
//   - The path of the archived file.
//   - An error if the move fails. The original is left in place then.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	dir := fm.ArchiveDir
	if fm.UseDateSubdirs {
		now := fm.now()
		dir = filepath.Join(dir, fmt.Sprintf("%d", now.Year()), fmt.Sprintf("%02d", now.Month()), fmt.Sprintf("%02d", now.Day()))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath := freePath(filepath.Join(dir, filepath.Base(filePath)))

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// freePath returns p, or p with a "_N" suffix before the extension when p
// already exists.
func freePath(p string) string {
	if !FileExists(p) {
		return p
	}
	ext := filepath.Ext(p)
	stem := strings.TrimSuffix(p, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if !FileExists(candidate) {
			return candidate
		}
	}
}

func (fm *FileManager) now() time.Time {
	if fm.Now == nil {
		return time.Now()
	}
	return fm.Now()
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// OutputPath returns the workbook path for format inside OutputDir.
func (fm *FileManager) OutputPath(format string) string {
	return filepath.Join(fm.OutputDir, GenerateOutputFileName(format, fm.now()))
}

// GenerateOutputFileName expands a report file name format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {timestamp} - Run time (YYYYMMDD_HHMMSS)
//               {date}      - Run date (YYYYMMDD)
//               {uuid}      - A random UUID
//   - now: The run time.
//
// RETURNS:
//   - The file name, always ending in .xlsx.
//
// EXAMPLE:
//   format: "facturas_consolidadas_{timestamp}.xlsx"
//   output: "facturas_consolidadas_20240305_143022.xlsx"
func GenerateOutputFileName(format string, now time.Time) string {
	replacer := strings.NewReplacer(
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
		"{uuid}", uuid.New().String(),
	)
	result := replacer.Replace(format)

	if !strings.HasSuffix(strings.ToLower(result), ".xlsx") {
		result += ".xlsx"
	}
	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// WriteErrorLog writes one entry per skipped document to LogDir.
//
// PARAMETERS:
//   - failures: The skipped documents.
//
// RETURNS:
//   - The path to the error log file, or "" when there were no failures.
//   - An error if writing fails.
func (fm *FileManager) WriteErrorLog(failures []types.Failure) (string, error) {
	if len(failures) == 0 {
		return "", nil
	}

	now := fm.now()
	logPath := filepath.Join(fm.LogDir, fmt.Sprintf("error_log_%s.txt", now.Format("20060102_150405")))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	fmt.Fprintf(w, "DIAN Invoice Consolidator - Error Log\n"+
		"Generated: %s\n"+
		"Skipped Documents: %d\n"+
		"================================================================================\n\n",
		now.Format("2006-01-02 15:04:05"), len(failures))

	for i, f := range failures {
		kind, field := classify(f.Err)
		fmt.Fprintf(w, "Error #%d\n", i+1)
		fmt.Fprintf(w, "  Document:   %s\n", f.DocumentID)
		fmt.Fprintf(w, "  Error Type: %s\n", kind)
		if field != "" {
			fmt.Fprintf(w, "  Field:      %s\n", field)
		}
		fmt.Fprintf(w, "  Message:    %v\n\n", f.Err)
	}

	w.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// classify names the kind of failure and, for malformed invoices, the
// offending field.
func classify(err error) (string, string) {
	var mErr *invoice.MalformedInvoiceError
	if errors.As(err, &mErr) {
		return "malformed invoice", mErr.Field
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "not processed", ""
	}
	return "unreadable source", ""
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a run.
type RunSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time

	RulesFile  string
	RulesCount int

	Archives  int
	XMLFiles  int
	Documents int
	Succeeded int
	Failed    int
	Lines     int
	Converted int
	Filtered  int

	ReportPath string
	DryRun     bool
	Failures   []types.Failure
}

// WriteSummaryLog writes the run summary to LogDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func (fm *FileManager) WriteSummaryLog(s RunSummary) (string, error) {
	summaryPath := filepath.Join(fm.LogDir, fmt.Sprintf("processing_summary_%s.txt", fm.now().Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	writeSummary(w, s)

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

// FormatSummary renders the summary as printed on the console.
func FormatSummary(s RunSummary) string {
	var b strings.Builder
	writeSummary(&b, s)
	return b.String()
}

func writeSummary(w io.Writer, s RunSummary) {
	report := s.ReportPath
	if s.DryRun {
		report = "(dry run, not written)"
	} else if report == "" {
		report = "(none)"
	}

	fmt.Fprintf(w, "DIAN Invoice Consolidator - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Rules:          %s (%d suppliers)\n"+
		"  Report:         %s\n\n"+
		"Statistics:\n"+
		"  Archives:           %d\n"+
		"  Loose XML Files:    %d\n"+
		"  Documents:          %d\n"+
		"  Succeeded:          %d\n"+
		"  Failed:             %d\n"+
		"  Lines:              %d\n"+
		"  Converted Lines:    %d\n"+
		"  Filtered Lines:     %d\n\n",
		s.RunID,
		s.StartTime.Format("2006-01-02 15:04:05"),
		s.EndTime.Format("2006-01-02 15:04:05"),
		s.EndTime.Sub(s.StartTime).String(),
		s.RulesFile, s.RulesCount,
		report,
		s.Archives, s.XMLFiles, s.Documents, s.Succeeded, s.Failed,
		s.Lines, s.Converted, s.Filtered)

	if len(s.Failures) > 0 {
		io.WriteString(w, "Skipped Documents:\n")
		io.WriteString(w, "--------------------------------------------------------------------------------\n")
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  Document: %s\n", f.DocumentID)
			fmt.Fprintf(w, "  Error:    %v\n\n", f.Err)
		}
	}

	io.WriteString(w, "================================================================================\n"+
		"End of Summary\n")
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
