package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItems_SingleItem(t *testing.T) {
	lines := []string{
		"Κωδικός Είδους",
		"1234567",
		"IPHONE 15 128GB",
		"999,00",
	}
	items := parseItems(lines, "")
	require.Len(t, items, 1)
	assert.Equal(t, "1234567", items[0].SKU)
	assert.Equal(t, "IPHONE 15 128GB", items[0].Description)
	assert.InDelta(t, 999.00, items[0].Gross, 0.001)
}

func TestParseItems_MultiItemPricesByValue(t *testing.T) {
	// Prices include the VAT amount (180.31 = 949 * 0.19) and the total
	// (968 = 949 + 19); both must be filtered, the rest assigned so the
	// expensive device gets the high price, the accessory the low one.
	lines := []string{
		"Κωδικός Είδους",
		"1234567",
		"IPHONE 15 128GB",
		"7654321 USB CABLE 1M",
		"949,00",
		"19,00",
		"180,31",
		"968,00",
	}
	items := parseItems(lines, "")
	require.Len(t, items, 2)

	bysku := map[string]float64{}
	for _, it := range items {
		bysku[it.SKU] = it.Gross
	}
	assert.InDelta(t, 949.00, bysku["1234567"], 0.001)
	assert.InDelta(t, 19.00, bysku["7654321"], 0.001)
}

func TestParseItems_PhoneNumberNotASKU(t *testing.T) {
	lines := []string{
		"Κωδικός Είδους",
		"99123456",
		"1234567 IPHONE CASE",
		"25,00",
	}
	items := parseItems(lines, "99123456")
	require.Len(t, items, 1)
	assert.Equal(t, "1234567", items[0].SKU)
}

func TestParseItems_NoTable(t *testing.T) {
	assert.Nil(t, parseItems([]string{"ΑΠΟΔΕΙΞΗ ΛΙΑΝΙΚΗΣ", "1234567"}, ""))
}
