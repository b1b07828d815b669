package ticket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repairRecord() *Record {
	return &Record{
		Type:       TypeQuickRepairPhone,
		StoreID:    "LIM-01",
		InvoiceRef: "123456ΑΠΔΑ000789",
		Customer:   Customer{FirstName: "Γιώργος", LastName: "Παπαδόπουλος", Phone: "99123456"},
		Items:      []Item{{SKU: "1234567", Description: "IPHONE 15", Gross: 999}},
	}
}

func TestRecord_Validate(t *testing.T) {
	require.NoError(t, repairRecord().Validate())

	t.Run("unknown type", func(t *testing.T) {
		r := repairRecord()
		r.Type = "WASHING_MACHINE"
		assert.Error(t, r.Validate())
	})

	t.Run("placeholder counts as missing", func(t *testing.T) {
		r := repairRecord()
		r.StoreID = Placeholder
		err := r.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store_id")
	})

	t.Run("repair requires an item", func(t *testing.T) {
		r := repairRecord()
		r.Items = nil
		assert.Contains(t, r.MissingFields(), "item_list")
	})

	t.Run("promo needs no items", func(t *testing.T) {
		r := repairRecord()
		r.Type = TypePromo
		r.Items = nil
		assert.NoError(t, r.Validate())
	})
}

func TestRecord_PrimaryItem(t *testing.T) {
	r := repairRecord()
	r.Items = []Item{
		{SKU: "1111111", Description: "USB CABLE", Gross: 19},
		{SKU: "2222222", Description: "IPHONE 15", Gross: 999},
		{SKU: "3333333", Description: "CASE", Gross: 25},
	}
	assert.Equal(t, "2222222", r.PrimaryItem().SKU)

	r.Items = nil
	assert.Equal(t, Placeholder, r.PrimaryItem().SKU)
}

func TestRecord_SerialOrInvoice(t *testing.T) {
	r := repairRecord()
	r.Serial = "123456789012345"
	assert.Equal(t, "123456789012345", r.SerialOrInvoice())

	r.Serial = Placeholder
	assert.Equal(t, r.InvoiceRef, r.SerialOrInvoice())
}
