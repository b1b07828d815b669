package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"123,45", 123.45},
		{"123.45", 123.45},
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"1.234.567,89", 1234567.89},
		{"1,234,567.89", 1234567.89},
		{" 45,00 ", 45.00},
		{"-5,00", -5.00},
		{"999,00", 999.00},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseAmount(c.in)
			require.NoError(t, err)
			assert.InDelta(t, c.want, got, 0.001)
		})
	}
}

func TestParseAmount_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"abc",
		"123",
		"12,3",
		"1.234",
		"12.345",
		"12,34,5",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAmount(in)
			require.Error(t, err)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, ReasonBadAmount, pe.Reason)
		})
	}
}
