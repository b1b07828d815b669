package driver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

var nonDigitRe = regexp.MustCompile(`[^0-9]`)

// formatPhone normalizes a local phone number into the +357 form the CRM's
// customer modal validates. Anything that cleans to non-digits becomes the
// all-zero sentinel the CRM accepts for walk-ins.
func formatPhone(phone string) string {
	clean := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(clean, "+") {
		return clean
	}
	clean = strings.TrimLeft(clean, "0")
	if clean == "" || nonDigitRe.MatchString(clean) {
		clean = "00000000"
	}
	return "+357" + clean
}

func (d *Driver) storeName(storeID string) string {
	if name, ok := d.cfg.StoreNames[storeID]; ok {
		return name
	}
	return storeID
}

// fillForm populates the add-ticket form top to bottom, in the order the
// page's own change handlers expect. The customer is created through the
// modal first; the device and repair fields follow.
func (d *Driver) fillForm(ctx context.Context, rec *ticket.Record, seed string) error {
	if err := d.page.WaitVisible(ctx, "#store_id"); err != nil {
		return err
	}
	if err := d.page.SelectByText(ctx, "#store_id", d.storeName(rec.StoreID)); err != nil {
		return fmt.Errorf("select store: %w", err)
	}

	// Category is preselected on most stores; failure here is not fatal.
	if err := d.page.SelectByText(ctx, "#pmm_ticket_category", "In Warranty"); err != nil {
		if exists, _ := d.page.Exists(ctx, "#pmm_ticket_category"); exists {
			return fmt.Errorf("select warranty category: %w", err)
		}
	}

	if err := d.createCustomer(ctx, rec); err != nil {
		return err
	}

	item := rec.PrimaryItem()
	sku := item.SKU
	if sku == "" {
		sku = ticket.Placeholder
	}
	description := item.Description
	if description == "" {
		description = ticket.Placeholder
	}

	selects := []struct{ selector, text string }{
		{"#device_id", "Other/Generic"},
		{"#device_password_type", "No code"},
		{"#device_bootable", "Yes"},
	}
	for _, s := range selects {
		if err := d.page.SelectByText(ctx, s.selector, s.text); err != nil {
			return fmt.Errorf("select %s: %w", s.selector, err)
		}
	}

	itemsLeft := itemsLeftText(seed)
	values := []struct{ selector, value string }{
		{"#pmm_material_description", description},
		{"#serial_no", rec.SerialOrInvoice()},
		{"#repair_print", visibleDamageText(seed)},
		{"#pmm_material", sku},
		{"#pmm_safety_net_contract_number", rec.InvoiceRef},
		{"#pmm_items_left_with_device", itemsLeft},
		{"#pmm_navision_customer_number", navisionNumber(rec)},
		{"#repair", repairDescription(rec.Type, itemsLeft, seed)},
	}
	for _, v := range values {
		if err := d.page.SetValue(ctx, v.selector, v.value); err != nil {
			return fmt.Errorf("fill %s: %w", v.selector, err)
		}
	}
	return nil
}

// navisionNumber prefers the ERP customer code; tickets without one carry
// the invoice reference so the back office can still cross-match.
func navisionNumber(rec *ticket.Record) string {
	if rec.CSTCode != "" && rec.CSTCode != ticket.Placeholder {
		return rec.CSTCode
	}
	return rec.InvoiceRef
}

// createCustomer drives the add-customer modal and waits for it to close,
// which is the page's signal that the new customer is selected on the form.
func (d *Driver) createCustomer(ctx context.Context, rec *ticket.Record) error {
	if err := d.page.Click(ctx, "#cur_add_html"); err != nil {
		return fmt.Errorf("open customer modal: %w", err)
	}
	if err := d.page.WaitVisible(ctx, "#addCustomer"); err != nil {
		return fmt.Errorf("customer modal: %w", err)
	}

	phone := formatPhone(rec.Customer.Phone)
	if err := d.page.SelectByText(ctx, "#customer_storeID", d.storeName(rec.StoreID)); err != nil {
		return fmt.Errorf("customer store: %w", err)
	}
	// "1" is the individual (non-company) customer type.
	if err := d.page.SetValue(ctx, "#type", "1"); err != nil {
		return fmt.Errorf("customer type: %w", err)
	}
	fields := []struct{ selector, value string }{
		{"#firstName", rec.Customer.FirstName},
		{"#lastName", rec.Customer.LastName},
		{"#email", ""},
		{"#phoneNo", phone},
		{"#mobile", phone},
	}
	for _, f := range fields {
		if err := d.page.SetValue(ctx, f.selector, f.value); err != nil {
			return fmt.Errorf("customer %s: %w", f.selector, err)
		}
	}

	if err := d.page.Click(ctx, "#add_customer_form button[type='submit']"); err != nil {
		return fmt.Errorf("save customer: %w", err)
	}
	if err := d.page.WaitHidden(ctx, "#addCustomer"); err != nil {
		return fmt.Errorf("customer modal did not close: %w", err)
	}
	return nil
}
