// =============================================================================
// DIAN Invoice Consolidator - XLSX Rule Sheet Parser
// =============================================================================
//
// Conversion rules are often maintained by the purchasing team in a
// spreadsheet instead of a JSON file. This module reads such a sheet and
// returns its raw rows; the rules package validates them exactly like rows
// coming from JSON.
//
// SHEET STRUCTURE (Expected Columns):
//
//   | Column A         | Column B | Column C      |
//   |------------------|----------|---------------|
//   | Proveedor        | Factor   | Tipo objetivo |
//   | Granja San Pedro | 30       | Huevo         |
//   | Avícola El Sol   | 360      | Huevo         |
//
// Column positions and the header row are configurable via SheetColumns.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// ROW STRUCTURE
// =============================================================================

// RuleRow is one non-empty row of a rule sheet, as text.
type RuleRow struct {
	// Supplier is the supplier name cell.
	Supplier string

	// Factor is the factor cell, unparsed. Spreadsheets written with a
	// Spanish locale produce "2,5" here, so parsing is left to the caller.
	Factor string

	// TargetType is the target type cell.
	TargetType string

	// Row is the 1-based spreadsheet row number, for error messages.
	Row int
}

// =============================================================================
// SHEET COLUMN CONFIGURATION
// =============================================================================

// SheetColumns defines which columns in the sheet contain which data.
// Column indices are 0-based (A=0, B=1, C=2, etc.)
type SheetColumns struct {
	// Sheet is the sheet name. Empty means the first sheet.
	Sheet string

	SupplierColumn   int
	FactorColumn     int
	TargetTypeColumn int

	// DataStartRow is the row number where data begins (0-based).
	// Default: 1 (Row 2, after the header)
	DataStartRow int
}

// DefaultSheetColumns returns the default column configuration.
func DefaultSheetColumns() SheetColumns {
	return SheetColumns{
		SupplierColumn:   0, // Column A
		FactorColumn:     1, // Column B
		TargetTypeColumn: 2, // Column C
		DataStartRow:     1, // Row 2
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a rule sheet using the default column configuration.
func Parse(path string) ([]RuleRow, error) {
	return ParseWithConfig(path, DefaultSheetColumns())
}

// ParseWithConfig reads a rule sheet using a custom column configuration.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//   - columns: The column configuration for parsing.
//
// RETURNS:
//   - The non-empty data rows, in sheet order.
//   - An error if the file cannot be opened or the sheet does not exist.
func ParseWithConfig(path string, columns SheetColumns) ([]RuleRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule sheet: %w", err)
	}
	defer f.Close()

	sheetName := columns.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("rule workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)
	}

	var result []RuleRow
	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}
		result = append(result, RuleRow{
			Supplier:   cell(row, columns.SupplierColumn),
			Factor:     cell(row, columns.FactorColumn),
			TargetType: cell(row, columns.TargetTypeColumn),
			Row:        i + 1,
		})
	}

	return result, nil
}

// cell returns the trimmed value at index, or "" when the row is shorter.
// excelize trims trailing empty cells from each row.
func cell(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// isRowEmpty checks if all cells in a row are empty.
func isRowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
