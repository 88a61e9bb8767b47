package csvparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReaderDetectsDelimiter(t *testing.T) {
	inputs := map[string]string{
		"comma":     "proveedor,factor,tipo_objetivo\nGranja San Pedro,30,Huevo\n",
		"semicolon": "proveedor;factor;tipo_objetivo\nGranja San Pedro;30;Huevo\n",
		"tab":       "proveedor\tfactor\ttipo_objetivo\nGranja San Pedro\t30\tHuevo\n",
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			data, err := ParseReader(strings.NewReader(in), Settings{})
			require.NoError(t, err)
			assert.Equal(t, []string{"proveedor", "factor", "tipo_objetivo"}, data.Headers)
			require.Len(t, data.Rows, 1)
			assert.Equal(t, "Granja San Pedro", data.Rows[0]["proveedor"])
			assert.Equal(t, "30", data.Rows[0]["factor"])
			assert.Equal(t, []int{2}, data.RowNumbers)
		})
	}
}

func TestParseReaderDecimalCommaInSemicolonFile(t *testing.T) {
	in := "proveedor;factor\n\"Avícola, El Sol\";12,5\n"
	data, err := ParseReader(strings.NewReader(in), Settings{})
	require.NoError(t, err)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "Avícola, El Sol", data.Rows[0]["proveedor"])
	assert.Equal(t, "12,5", data.Rows[0]["factor"])
}

func TestParseReaderSkipsEmptyRowsAndFillsMissingCells(t *testing.T) {
	in := "a,b,\n1\n,,\n\n3,4,5\n"
	data, err := ParseReader(strings.NewReader(in), Settings{Delimiter: ","})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "Column_3"}, data.Headers)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, map[string]string{"a": "1", "b": "", "Column_3": ""}, data.Rows[0])
	assert.Equal(t, []int{2, 5}, data.RowNumbers)
}

func TestParseReaderEncodings(t *testing.T) {
	latin1 := []byte("proveedor,factor\nAv\xedcola \xd1and\xfa,30\n")

	data, err := ParseReader(strings.NewReader(string(latin1)), Settings{})
	require.NoError(t, err)
	assert.Equal(t, "Avícola Ñandú", data.Rows[0]["proveedor"])

	data, err = ParseReader(strings.NewReader(string(latin1)), Settings{Encoding: "ISO-8859-1"})
	require.NoError(t, err)
	assert.Equal(t, "Avícola Ñandú", data.Rows[0]["proveedor"])

	_, err = ParseReader(strings.NewReader(string(latin1)), Settings{Encoding: "UTF-8"})
	assert.Error(t, err)

	_, err = ParseReader(strings.NewReader("a\n"), Settings{Encoding: "EBCDIC"})
	assert.Error(t, err)
}

func TestParseReaderStripsBOM(t *testing.T) {
	data, err := ParseReader(strings.NewReader("\xef\xbb\xbfproveedor,factor\nX,1\n"), Settings{})
	require.NoError(t, err)
	assert.Equal(t, "proveedor", data.Headers[0])
}

func TestParseReaderEmpty(t *testing.T) {
	_, err := ParseReader(strings.NewReader(""), Settings{})
	assert.Error(t, err)
}

func TestParseAndFindHeader(t *testing.T) {
	p := filepath.Join(t.TempDir(), "reglas.csv")
	require.NoError(t, os.WriteFile(p, []byte("Proveedor ; Factor\nX;2\n"), 0644))

	data, err := Parse(p, Settings{})
	require.NoError(t, err)
	assert.Equal(t, p, data.SourceFile)
	assert.Equal(t, "Proveedor", data.FindHeader("supplier", "proveedor"))
	assert.Equal(t, "Factor", data.FindHeader("FACTOR"))
	assert.Equal(t, "", data.FindHeader("tipo_objetivo"))

	_, err = Parse(filepath.Join(t.TempDir(), "none.csv"), Settings{})
	assert.Error(t, err)
}
