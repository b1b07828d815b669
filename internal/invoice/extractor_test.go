package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

var testAliases = map[string][]string{
	"NIC-03": {"Λεωφόρος Μακαρίου"},
}

func TestExtract_PhoneRepairOldLayout(t *testing.T) {
	e := NewExtractor(testAliases)
	rec, err := e.Extract(doc(
		"ΑΠΟΔΕΙΞΗ ΛΙΑΝΙΚΗΣ",
		"Αρ. παραστατικού: 123456ΑΠΔΑ000789",
		"Κατάστημα: LIM-01",
		"Στοιχεία Πελάτη",
		"Παπαδόπουλος Γιώργος",
		"ΤΗΛΕΦΩΝΟ: 99 123 456",
		"Σειριακός Αριθμός: 123456789012345",
		"Κωδικός Είδους",
		"1234567",
		"IPHONE 15 128GB",
		"999,00",
	))
	require.NoError(t, err)

	assert.Equal(t, ticket.TypeQuickRepairPhone, rec.Type)
	assert.Equal(t, "LIM-01", rec.StoreID)
	assert.Equal(t, "123456ΑΠΔΑ000789", rec.InvoiceRef)
	assert.Equal(t, "Γιώργος", rec.Customer.FirstName)
	assert.Equal(t, "Παπαδόπουλος", rec.Customer.LastName)
	assert.Equal(t, "99123456", rec.Customer.Phone)
	assert.Equal(t, "123456789012345", rec.Serial)
	assert.Equal(t, ticket.Placeholder, rec.CSTCode)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "1234567", rec.Items[0].SKU)
	assert.InDelta(t, 999.00, rec.Items[0].Gross, 0.001)
}

func TestExtract_PromoNewLayout(t *testing.T) {
	e := NewExtractor(testAliases)
	rec, err := e.Extract(doc(
		"PROMO ΠΑΚΕΤΟ",
		"654321ΑΠΔΑ112233",
		"Κατάστημα Λεωφόρος Μακαρίου 25",
		"ΕΠΩΝΥΜΙΑ:",
		"Παπαδόπουλος",
		"Μαρία",
		"ΤΗΛΕΦΩΝΟ: 22123456",
	))
	require.NoError(t, err)

	assert.Equal(t, ticket.TypePromo, rec.Type)
	assert.Equal(t, "NIC-03", rec.StoreID)
	assert.Equal(t, "654321ΑΠΔΑ112233", rec.InvoiceRef)
	assert.Equal(t, "Μαρία", rec.Customer.FirstName)
	assert.Equal(t, "Παπαδόπουλος", rec.Customer.LastName)
	assert.Equal(t, "22123456", rec.Customer.Phone)
	// Promos do not require line items.
	assert.Empty(t, rec.Items)
}

func TestExtract_MissingPhoneFailsClosed(t *testing.T) {
	e := NewExtractor(testAliases)
	_, err := e.Extract(doc(
		"Αρ. παραστατικού: 123456ΑΠΔΑ000789",
		"Κατάστημα: LIM-01",
		"Στοιχεία Πελάτη",
		"Παπαδόπουλος Γιώργος",
		"Κωδικός Είδους",
		"1234567 IPHONE CASE",
		"25,00",
	))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, MissingFieldReason("customer.phone"), pe.Reason)
	assert.Equal(t, ticket.TypeQuickRepairPhone, pe.MatchedType)
}

func TestExtract_SerialFallbackAndPlaceholders(t *testing.T) {
	e := NewExtractor(testAliases)
	rec, err := e.Extract(doc(
		"Αρ. παραστατικού: 123456ΑΠΔΑ000789",
		"Κατάστημα: LIM-01",
		"Στοιχεία Πελάτη",
		"Ιωάννου Ανδρέας",
		"ΤΗΛΕΦΩΝΟ: 99123456",
		"Κωδικός Είδους",
		"7654321 SAMSUNG SMARTPHONE GALAXY",
		"450,00",
	))
	require.NoError(t, err)
	assert.Equal(t, ticket.Placeholder, rec.Serial)
	assert.Equal(t, "123456ΑΠΔΑ000789", rec.SerialOrInvoice())
}
