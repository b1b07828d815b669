package ticket

import "fmt"

// Type is a closed category of service request. It determines which record
// fields are mandatory and which status sequence a created ticket follows.
type Type string

const (
	TypePromo                Type = "PROMO"
	TypeQuickRepairPhone     Type = "QUICK_REPAIR_PHONE"
	TypeQuickRepairPrinter   Type = "QUICK_REPAIR_PRINTER"
	TypeQuickRepairLaptop    Type = "QUICK_REPAIR_LAPTOP"
	TypeQuickRepairTablet    Type = "QUICK_REPAIR_TABLET"
	TypeQuickRepairAppliance Type = "QUICK_REPAIR_APPLIANCE"
)

// Types lists the supported ticket types in classifier priority order.
var Types = []Type{
	TypePromo,
	TypeQuickRepairPrinter,
	TypeQuickRepairLaptop,
	TypeQuickRepairTablet,
	TypeQuickRepairAppliance,
	TypeQuickRepairPhone,
}

// Valid reports whether t is one of the supported ticket types.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Placeholder is the value the CRM accepts for optional fields that the
// invoice did not provide.
const Placeholder = "."

// Customer identifies the person a ticket is created for.
type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Item is one invoice line item.
type Item struct {
	SKU         string  `json:"sku"`
	Description string  `json:"description"`
	Gross       float64 `json:"gross"`
}

// Record holds every field required to create one ticket. It is produced by
// the extraction engine, validated there, and consumed exactly once by the
// workflow driver. It is never mutated after creation.
type Record struct {
	Type       Type     `json:"ticketType"`
	StoreID    string   `json:"storeId"`
	Customer   Customer `json:"customer"`
	Items      []Item   `json:"items"`
	InvoiceRef string   `json:"invoiceRef"`
	CSTCode    string   `json:"cstCode"`
	Serial     string   `json:"serial"`
	SourceFile string   `json:"sourceFile,omitempty"`
}

// PrimaryItem returns the line item with the highest gross price. The CRM
// form has a single material/product slot, so multi-item invoices file the
// most valuable item.
func (r *Record) PrimaryItem() Item {
	if len(r.Items) == 0 {
		return Item{SKU: Placeholder, Description: Placeholder}
	}
	best := r.Items[0]
	for _, it := range r.Items[1:] {
		if it.Gross > best.Gross {
			best = it
		}
	}
	return best
}

// SerialOrInvoice returns the serial number, falling back to the invoice
// reference when the invoice carried no serial.
func (r *Record) SerialOrInvoice() string {
	if r.Serial != "" && r.Serial != Placeholder {
		return r.Serial
	}
	return r.InvoiceRef
}

// Validate enforces the record invariant: every field mandatory for the
// record's type must be non-empty. A record failing validation must never
// reach the workflow driver.
func (r *Record) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("unknown ticket type %q", r.Type)
	}
	if missing := r.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("ticket type %s: missing mandatory fields %v", r.Type, missing)
	}
	return nil
}

// MissingFields lists the mandatory fields for the record's type that are
// empty or carry only the placeholder value.
func (r *Record) MissingFields() []string {
	var missing []string
	req := func(name, value string) {
		if value == "" || value == Placeholder {
			missing = append(missing, name)
		}
	}
	req("store_id", r.StoreID)
	req("invoice_reference", r.InvoiceRef)
	req("customer.last_name", r.Customer.LastName)
	req("customer.phone", r.Customer.Phone)

	// Repair tickets file a concrete device; promos only need the invoice
	// and customer context.
	if r.Type != TypePromo {
		if len(r.Items) == 0 {
			missing = append(missing, "item_list")
		} else {
			best := r.PrimaryItem()
			req("item.sku", best.SKU)
		}
	}
	return missing
}
