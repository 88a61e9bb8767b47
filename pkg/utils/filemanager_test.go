package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/invoice"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/types"
)

var fixedNow = time.Date(2024, 3, 5, 14, 30, 22, 0, time.UTC)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "facturas_zip"),
		filepath.Join(root, "facturas_xml"),
		filepath.Join(root, "resultados"),
		filepath.Join(root, "procesados"),
		filepath.Join(root, "logs"),
	)
	fm.Now = func() time.Time { return fixedNow }
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func touch(t *testing.T, p string) {
	t.Helper()
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
}

func TestDiscover(t *testing.T) {
	fm := newTestManager(t)
	touch(t, filepath.Join(fm.ZipDir, "b.zip"))
	touch(t, filepath.Join(fm.ZipDir, "a.ZIP"))
	touch(t, filepath.Join(fm.ZipDir, "notes.txt"))
	require.NoError(t, os.Mkdir(filepath.Join(fm.ZipDir, "dir.zip"), 0755))
	touch(t, filepath.Join(fm.XMLDir, "fv1.xml"))

	archives, err := fm.DiscoverArchives()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(fm.ZipDir, "a.ZIP"), filepath.Join(fm.ZipDir, "b.zip")}, archives)

	xmls, err := fm.DiscoverXML()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(fm.XMLDir, "fv1.xml")}, xmls)
}

func TestDiscoverMissingOrUnsetDir(t *testing.T) {
	fm := NewFileManager(filepath.Join(t.TempDir(), "none"), "", "", "", "")
	archives, err := fm.DiscoverArchives()
	require.NoError(t, err)
	assert.Empty(t, archives)

	xmls, err := fm.DiscoverXML()
	require.NoError(t, err)
	assert.Empty(t, xmls)
}

func TestArchiveInputFile(t *testing.T) {
	fm := newTestManager(t)
	src := filepath.Join(fm.ZipDir, "enero.zip")
	touch(t, src)

	dst, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.ArchiveDir, "enero.zip"), dst)
	assert.False(t, FileExists(src))
	assert.True(t, FileExists(dst))

	touch(t, src)
	second, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.ArchiveDir, "enero_1.zip"), second)
}

func TestArchiveInputFileDateSubdirs(t *testing.T) {
	fm := newTestManager(t)
	fm.UseDateSubdirs = true
	src := filepath.Join(fm.XMLDir, "fv1.xml")
	touch(t, src)

	dst, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.ArchiveDir, "2024", "03", "05", "fv1.xml"), dst)
}

func TestGenerateOutputFileName(t *testing.T) {
	assert.Equal(t, "facturas_consolidadas_20240305_143022.xlsx",
		GenerateOutputFileName("facturas_consolidadas_{timestamp}.xlsx", fixedNow))
	assert.Equal(t, "reporte_20240305.xlsx", GenerateOutputFileName("reporte_{date}", fixedNow))

	name := GenerateOutputFileName("{uuid}.xlsx", fixedNow)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}\.xlsx$`), name)
}

func TestWriteErrorLog(t *testing.T) {
	fm := newTestManager(t)

	path, err := fm.WriteErrorLog(nil)
	require.NoError(t, err)
	assert.Empty(t, path)

	failures := []types.Failure{
		{DocumentID: "enero.zip!fv3.xml", Err: fmt.Errorf("parse: %w", &invoice.MalformedInvoiceError{Field: "ID", Reason: "required field missing"})},
		{DocumentID: "roto.zip", Err: errors.New("zip: not a valid zip file")},
		{DocumentID: "tarde.xml", Err: fmt.Errorf("not processed: %w", context.Canceled)},
	}
	path, err = fm.WriteErrorLog(failures)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.LogDir, "error_log_20240305_143022.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Skipped Documents: 3")
	assert.Contains(t, content, "Document:   enero.zip!fv3.xml")
	assert.Contains(t, content, "Error Type: malformed invoice")
	assert.Contains(t, content, "Field:      ID")
	assert.Contains(t, content, "Error Type: unreadable source")
	assert.Contains(t, content, "Error Type: not processed")
}

func TestWriteSummaryLog(t *testing.T) {
	fm := newTestManager(t)
	summary := RunSummary{
		RunID:      "run-1",
		StartTime:  fixedNow,
		EndTime:    fixedNow.Add(2 * time.Second),
		RulesFile:  "reglas_conversion.json",
		RulesCount: 2,
		Archives:   5,
		Documents:  5,
		Succeeded:  4,
		Failed:     1,
		Lines:      9,
		Converted:  6,
		ReportPath: "resultados/facturas.xlsx",
		Failures:   []types.Failure{{DocumentID: "c.zip!3.xml", Err: errors.New("bad")}},
	}

	path, err := fm.WriteSummaryLog(summary)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Run ID:         run-1")
	assert.Contains(t, content, "Duration:       2s")
	assert.Contains(t, content, "Rules:          reglas_conversion.json (2 suppliers)")
	assert.Contains(t, content, "Succeeded:          4")
	assert.Contains(t, content, "Document: c.zip!3.xml")

	summary.DryRun = true
	assert.Contains(t, FormatSummary(summary), "(dry run, not written)")
}
