package invoice

import (
	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

// Extractor turns an invoice document into a validated ticket record.
// It is a pure transformation: no side effects, safe for repeated calls.
type Extractor struct {
	classifiers  []Classifier
	storeAliases map[string][]string
}

// NewExtractor builds an extractor with the default classifiers. storeAliases
// maps a store ID to text fragments that identify it on an invoice; a direct
// store-ID token on the invoice always wins over aliases.
func NewExtractor(storeAliases map[string][]string) *Extractor {
	return &Extractor{
		classifiers:  DefaultClassifiers(),
		storeAliases: storeAliases,
	}
}

// SetClassifiers replaces the classifier registry, preserving the order given.
// Used when configuration overrides the built-in anchors.
func (e *Extractor) SetClassifiers(cs []Classifier) {
	if len(cs) > 0 {
		e.classifiers = cs
	}
}

// Extract classifies the document and pulls out every field the classified
// ticket type requires. It fails closed: a record missing a mandatory field
// is never returned.
func (e *Extractor) Extract(doc *Document) (*ticket.Record, error) {
	typ, err := Classify(e.classifiers, doc)
	if err != nil {
		return nil, err
	}

	full := doc.Text()
	first, last := extractCustomerName(doc.Lines)
	phone := extractPhone(doc.Lines)

	rec := &ticket.Record{
		Type:       typ,
		StoreID:    extractStore(doc.Lines, e.storeAliases),
		InvoiceRef: extractInvoiceRef(doc.Lines, full),
		CSTCode:    orPlaceholder(extractCST(doc.Lines)),
		Serial:     orPlaceholder(extractSerial(doc.Lines)),
		Items:      parseItems(doc.Lines, phone),
		SourceFile: doc.Source,
		Customer: ticket.Customer{
			FirstName: orPlaceholder(first),
			LastName:  last,
			Phone:     phone,
		},
	}

	if err := rec.Validate(); err != nil {
		if missing := rec.MissingFields(); len(missing) > 0 {
			return nil, parseErr(MissingFieldReason(missing[0]), typ, "%v", err)
		}
		return nil, parseErr("invalid_record", typ, "%v", err)
	}
	return rec, nil
}

// ExtractFile loads a PDF from disk and extracts it.
func (e *Extractor) ExtractFile(path string) (*ticket.Record, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return e.Extract(doc)
}

func orPlaceholder(s string) string {
	if s == "" {
		return ticket.Placeholder
	}
	return s
}
