package amount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeparatorConventions(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"15000", "15000"},
		{"15000.00", "15000"},
		{"15000,00", "15000"},
		{"2.5", "2.5"},
		{"2,5", "2.5"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1.234.567", "1234567"},
		{"1,234,567", "1234567"},
		{"1.234.567,89", "1234567.89"},
		{"1,234", "1.234"},
		{" 30 ", "30"},
		{"1 500,25", "1500.25"},
		{"-12,5", "-12.5"},
		{"+7", "7"},
		{".5", "0.5"},
		{"5.", "5"},
		{"0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseRejectsMalformedValues(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"abc",
		"12a",
		"1e3",
		".",
		"-",
		"1.2.3,4,5",
		"12.34.567",
		"1.23.456",
		"1,234.567,8",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestDotAndCommaConventionsAgree(t *testing.T) {
	pairs := [][2]string{
		{"0.75", "0,75"},
		{"123456.789", "123456,789"},
		{"1,000.5", "1.000,5"},
	}
	for _, p := range pairs {
		a, err := Parse(p[0])
		require.NoError(t, err)
		b, err := Parse(p[1])
		require.NoError(t, err)
		assert.True(t, a.Equal(b), "%s != %s", p[0], p[1])
	}
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("x") })
	assert.True(t, MustParse("1,5").Equal(decimal.NewFromFloat(1.5)))
}
