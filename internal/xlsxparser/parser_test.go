package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeSheet(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}

	path := filepath.Join(t.TempDir(), "reglas.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseReadsRowsAfterHeader(t *testing.T) {
	path := writeSheet(t, "Sheet1", [][]interface{}{
		{"Proveedor", "Factor", "Tipo objetivo"},
		{"Granja San Pedro", 30, "Huevo"},
		{},
		{"  Avícola El Sol ", "2,5", "Kilo"},
	})

	rows, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, RuleRow{Supplier: "Granja San Pedro", Factor: "30", TargetType: "Huevo", Row: 2}, rows[0])
	assert.Equal(t, RuleRow{Supplier: "Avícola El Sol", Factor: "2,5", TargetType: "Kilo", Row: 4}, rows[1])
}

func TestParseWithConfigNamedSheetAndShortRows(t *testing.T) {
	path := writeSheet(t, "reglas", [][]interface{}{
		{"Granja", 12},
	})

	cols := DefaultSheetColumns()
	cols.Sheet = "reglas"
	cols.DataStartRow = 0

	rows, err := ParseWithConfig(path, cols)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].TargetType)
	assert.Equal(t, "12", rows[0].Factor)
}

func TestParseMissingFileAndSheet(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)

	path := writeSheet(t, "Sheet1", [][]interface{}{{"a", 1, "b"}})
	cols := DefaultSheetColumns()
	cols.Sheet = "nope"
	_, err = ParseWithConfig(path, cols)
	require.Error(t, err)
}
