package invoice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractInvoiceRef(t *testing.T) {
	t.Run("labelled old layout", func(t *testing.T) {
		lines := []string{"Αρ. παραστατικού: 123456ΑΠΔΑ000789"}
		got := extractInvoiceRef(lines, strings.Join(lines, "\n"))
		assert.Equal(t, "123456ΑΠΔΑ000789", got)
	})
	t.Run("standalone new layout", func(t *testing.T) {
		lines := []string{"ΑΠΟΔΕΙΞΗ ΛΙΑΝΙΚΗΣ", "654321ΑΠΔΑ112233"}
		got := extractInvoiceRef(lines, strings.Join(lines, "\n"))
		assert.Equal(t, "654321ΑΠΔΑ112233", got)
	})
	t.Run("absent", func(t *testing.T) {
		lines := []string{"no reference here"}
		assert.Empty(t, extractInvoiceRef(lines, strings.Join(lines, "\n")))
	})
}

func TestExtractPhone(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"mobile", "ΤΗΛΕΦΩΝΟ: 99123456", "99123456"},
		{"landline", "Τηλ: 22123456", "22123456"},
		{"spaced digits", "Τηλ 99 12 34 56", "99123456"},
		{"international fallback", "Tel +35799123456", "+35799123456"},
		{"rejects long runs", "ΑΦΜ 991234567890", ""},
		{"none", "no digits", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, extractPhone([]string{c.line}))
		})
	}
}

func TestIsValidCST(t *testing.T) {
	valid := []string{"CB12345678", "CΒ12345678", "0123456789", "ΓΔ5", "A1"}
	for _, v := range valid {
		assert.True(t, isValidCST(v), v)
	}
	invalid := []string{"", "....", "·•", "12/05/2024", "1-2", "123", "toolongvalue99"}
	for _, v := range invalid {
		assert.False(t, isValidCST(v), v)
	}
}

func TestExtractSerial(t *testing.T) {
	lines := []string{
		"Κωδικός Είδους",
		"Σειριακός Αριθμός: 123456789012345",
	}
	assert.Equal(t, "123456789012345", extractSerial(lines))

	// Long digit runs outside a serial label line are ignored.
	assert.Empty(t, extractSerial([]string{"Barcode 123456789012345"}))
}

func TestExtractCustomerName(t *testing.T) {
	t.Run("old layout", func(t *testing.T) {
		first, last := extractCustomerName([]string{
			"Στοιχεία Πελάτη",
			"Είδος Παραστατικού",
			"Παπαδόπουλος Γιώργος",
		})
		assert.Equal(t, "Γιώργος", first)
		assert.Equal(t, "Παπαδόπουλος", last)
	})
	t.Run("new layout split lines", func(t *testing.T) {
		first, last := extractCustomerName([]string{
			"ΕΠΩΝΥΜΙΑ:",
			"Παπαδόπουλος",
			"Μαρία",
			"ΤΗΛΕΦΩΝΟ: 22123456",
		})
		assert.Equal(t, "Μαρία", first)
		assert.Equal(t, "Παπαδόπουλος", last)
	})
	t.Run("fallback to any name line", func(t *testing.T) {
		first, last := extractCustomerName([]string{
			"ΑΠΟΔΕΙΞΗ ΛΙΑΝΙΚΗΣ",
			"Ιωάννου Ανδρέας",
		})
		assert.Equal(t, "Ανδρέας", first)
		assert.Equal(t, "Ιωάννου", last)
	})
}

func TestExtractStore(t *testing.T) {
	aliases := map[string][]string{
		"NIC-03": {"Λεωφόρος Μακαρίου"},
		"LIM-01": {"Λεμεσός"},
	}
	t.Run("direct token wins", func(t *testing.T) {
		got := extractStore([]string{"Κατάστημα: LIM-01", "Λεωφόρος Μακαρίου 25"}, aliases)
		assert.Equal(t, "LIM-01", got)
	})
	t.Run("alias match", func(t *testing.T) {
		got := extractStore([]string{"Κατάστημα Λεωφόρος Μακαρίου 25"}, aliases)
		assert.Equal(t, "NIC-03", got)
	})
	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, extractStore([]string{"Πάφος"}, aliases))
	})
}
