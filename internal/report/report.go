// =============================================================================
// DIAN Invoice Consolidator - Report Writer
// =============================================================================
//
// This module renders a batch result as the consolidated XLSX workbook.
//
// WORKBOOK LAYOUT:
//   Sheet "Facturas": one row per record.
//     PROVEEDOR | Dia | N factura | Tipo | Cantidad | Valor Unitario
//   With IncludeDetails the sheet also carries:
//     NIT | Fecha | Total | Archivo
//   Sheet "Errores": one row per skipped document.
//     Documento | Error
//   The errors sheet is only written when there are failures.
//
// Quantities and prices are written as numbers so the workbook can be
// summed and pivoted directly.
//
// =============================================================================

package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/types"
)

// Sheet names.
const (
	RecordsSheet  = "Facturas"
	FailuresSheet = "Errores"
)

// BaseColumns are the headers of the records sheet.
var BaseColumns = []string{"PROVEEDOR", "Dia", "N factura", "Tipo", "Cantidad", "Valor Unitario"}

// DetailColumns are appended to BaseColumns when IncludeDetails is set.
var DetailColumns = []string{"NIT", "Fecha", "Total", "Archivo"}

// FailureColumns are the headers of the errors sheet.
var FailureColumns = []string{"Documento", "Error"}

// Options controls the workbook layout.
type Options struct {
	// IncludeDetails adds the supplier NIT, the full issue date, the line
	// total and the source document to each row.
	IncludeDetails bool
}

// Write creates the workbook at path.
//
// PARAMETERS:
//   - path: The output .xlsx path. Existing files are overwritten.
//   - records: The rows, in the order they should appear.
//   - failures: Skipped documents for the errors sheet.
//   - opts: Layout options.
//
// RETURNS:
//   - An error if the workbook cannot be built or saved.
func Write(path string, records []types.Record, failures []types.Failure, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RecordsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	columns := BaseColumns
	if opts.IncludeDetails {
		columns = append(append([]string{}, BaseColumns...), DetailColumns...)
	}

	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		rows = append(rows, recordRow(rec, opts))
	}
	if err := writeSheet(f, RecordsSheet, header, columns, rows); err != nil {
		return err
	}

	if len(failures) > 0 {
		if _, err := f.NewSheet(FailuresSheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", FailuresSheet, err)
		}
		rows = rows[:0]
		for _, fail := range failures {
			rows = append(rows, []interface{}{fail.DocumentID, errorText(fail.Err)})
		}
		if err := writeSheet(f, FailuresSheet, header, FailureColumns, rows); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", path, err)
	}
	return nil
}

// writeSheet streams a header row and the data rows into sheet.
func writeSheet(f *excelize.File, sheet string, headerStyle int, columns []string, rows [][]interface{}) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", sheet, err)
	}

	if err := sw.SetColWidth(1, len(columns), 18); err != nil {
		return fmt.Errorf("failed to size columns of %s: %w", sheet, err)
	}

	head := make([]interface{}, len(columns))
	for i, c := range columns {
		head[i] = excelize.Cell{StyleID: headerStyle, Value: c}
	}
	if err := sw.SetRow("A1", head); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, sheet, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %s: %w", sheet, err)
	}
	return nil
}

func recordRow(rec types.Record, opts Options) []interface{} {
	row := []interface{}{
		rec.Supplier,
		dayValue(rec.Day),
		rec.InvoiceNumber,
		rec.Type,
		rec.Quantity.InexactFloat64(),
		rec.UnitPrice.InexactFloat64(),
	}
	if opts.IncludeDetails {
		date := ""
		if !rec.IssueDate.IsZero() {
			date = rec.IssueDate.Format("2006-01-02")
		}
		row = append(row, rec.SupplierID, date, rec.Total().InexactFloat64(), rec.Source)
	}
	return row
}

// dayValue writes the day as a number when it is one.
func dayValue(day string) interface{} {
	if n, err := strconv.Atoi(day); err == nil {
		return n
	}
	return day
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
