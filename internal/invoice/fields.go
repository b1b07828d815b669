package invoice

import (
	"regexp"
	"sort"
	"strings"
)

// Locator patterns recovered from the two known invoice layouts. The "old"
// layout labels the customer block "Στοιχεία Πελάτη"; the "new" layout uses
// "ΕΠΩΝΥΜΙΑ:". Invoice references follow a NNNNNNΑΠΔΑNNNNNN shape either
// inline after a label or on a standalone line.
var (
	nameLineRe   = regexp.MustCompile(`^[\p{L}\.\-]+(?:\s+[\p{L}\.\-]+)+$`)
	phoneRe      = regexp.MustCompile(`(?:^|[^0-9])([29][0-9]{7})(?:[^0-9]|$)`)
	intlPhoneRe  = regexp.MustCompile(`\+[0-9]{10,15}`)
	invoiceOldRe = regexp.MustCompile(`Αρ\. παραστατικού:\s*([0-9]+ΑΠΔΑ[0-9]+)`)
	invoiceNewRe = regexp.MustCompile(`^[0-9]{6}ΑΠΔΑ[0-9]{6}$`)
	serialRe     = regexp.MustCompile(`[0-9]{14,20}`)
	storeIDRe    = regexp.MustCompile(`\b[A-Z]{3}-[0-9]{2}\b`)

	cstShortRe = regexp.MustCompile(`^[A-Za-zΑ-Ωα-ω]{1,2}[0-9]$`)
	cstTenRe   = regexp.MustCompile(`^[0-9]{10}$`)
	cstCBRe    = regexp.MustCompile(`^C[ΒB][0-9]{8}$`)
	dateRe     = regexp.MustCompile(`^[0-9]{1,2}[/-][0-9]{1,2}[/-][0-9]{2,4}$`)
)

// Labels and headings that must never be mistaken for a customer name.
var nameBlacklist = []string{
	"Είδος Παραστατικού", "Παραστατικού", "Είδος",
	"ΑΠΟΔΕΙΞΗ", "ΛΙΑΝΙΚΗΣ", "Δ.ΑΠΟΣΤΟΛΗΣ",
	"Κωδικός Είδους", "Περιγραφή", "Ποσότητα",
	"Τιμή Μονάδος", "Έκπτωση", "Αξία",
}

// Dot-like glyphs that PDF text extraction emits for leader lines; never a
// valid CST code.
var badGlyphs = map[rune]bool{'·': true, '•': true, '․': true, '‧': true, '.': true}

func looksLikeName(s string) bool {
	if strings.Contains(s, ":") || strings.Contains(s, "Στοιχεία") {
		return false
	}
	if strings.ContainsAny(s, "0123456789") {
		return false
	}
	for _, b := range nameBlacklist {
		if strings.Contains(s, b) {
			return false
		}
	}
	if !nameLineRe.MatchString(s) || len(s) > 60 {
		return false
	}
	return len(strings.Fields(s)) >= 2
}

func extractInvoiceRef(lines []string, full string) string {
	if m := invoiceOldRe.FindStringSubmatch(full); m != nil {
		return m[1]
	}
	for _, line := range lines {
		if invoiceNewRe.MatchString(strings.TrimSpace(line)) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func isValidCST(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || len(candidate) > 12 {
		return false
	}
	allBad := true
	for _, r := range candidate {
		if !badGlyphs[r] {
			allBad = false
			break
		}
	}
	if allBad {
		return false
	}
	if strings.ContainsAny(candidate, "/-") || dateRe.MatchString(candidate) {
		return false
	}
	return cstShortRe.MatchString(candidate) ||
		cstTenRe.MatchString(candidate) ||
		cstCBRe.MatchString(candidate)
}

func extractCST(lines []string) string {
	for _, line := range lines {
		for _, token := range strings.Fields(line) {
			if isValidCST(token) {
				return token
			}
		}
	}
	return ""
}

func extractSerial(lines []string) string {
	for _, line := range lines {
		if !strings.Contains(strings.ToLower(line), "σειριακός") {
			continue
		}
		if m := serialRe.FindString(strings.ReplaceAll(line, " ", "")); m != "" {
			return m
		}
	}
	return ""
}

func extractPhone(lines []string) string {
	for _, line := range lines {
		if m := phoneRe.FindStringSubmatch(strings.ReplaceAll(line, " ", "")); m != nil {
			return m[1]
		}
	}
	// International fallback: keep the + prefix.
	for _, line := range lines {
		if m := intlPhoneRe.FindString(strings.ReplaceAll(line, " ", "")); m != "" {
			return m
		}
	}
	return ""
}

// splitName divides a full customer line into (first, last): the final word
// is the first name, everything before it the surname, matching how both
// invoice layouts print names.
func splitName(s string) (first, last string) {
	parts := strings.Fields(s)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[len(parts)-1], strings.Join(parts[:len(parts)-1], " ")
	}
}

func extractCustomerOld(lines []string) (first, last string) {
	anchor := -1
	for i, s := range lines {
		if strings.Contains(s, "Στοιχεία Πελάτη") {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return "", ""
	}
	for i := anchor + 1; i < len(lines) && i < anchor+12; i++ {
		if looksLikeName(lines[i]) {
			return splitName(lines[i])
		}
	}
	return "", ""
}

var customerStopKeywords = []string{
	"ΠΟΛΗ:", "Δ.Ο.Υ:", "ΤΗΛΕΦΩΝΟ:", "ΑΠΟΔΕΙΞΗ", "Ημερομηνία", "Σειρά", "Κωδικός Είδους",
}

var namePartRe = regexp.MustCompile(`^[\p{L}\.\-\s]+$`)

func extractCustomerNew(lines []string) (first, last string) {
	for i, line := range lines {
		if !strings.Contains(line, "ΕΠΩΝΥΜΙΑ:") {
			continue
		}
		var parts []string
	collect:
		for j := i + 1; j < len(lines) && j < i+8; j++ {
			candidate := strings.TrimSpace(lines[j])
			for _, kw := range customerStopKeywords {
				if strings.Contains(candidate, kw) {
					break collect
				}
			}
			blacklisted := false
			for _, b := range nameBlacklist {
				if strings.Contains(candidate, b) {
					blacklisted = true
					break
				}
			}
			if blacklisted {
				continue
			}
			if candidate != "" && namePartRe.MatchString(candidate) {
				parts = append(parts, candidate)
				if len(parts) >= 2 {
					break
				}
			}
		}
		switch {
		case len(parts) >= 2:
			// Last segment is the first name, the rest the surname.
			return parts[len(parts)-1], strings.Join(parts[:len(parts)-1], " ")
		case len(parts) == 1:
			return splitName(parts[0])
		}
		return "", ""
	}
	return "", ""
}

func extractCustomerName(lines []string) (first, last string) {
	old := false
	for _, line := range lines {
		if strings.Contains(line, "Στοιχεία Πελάτη") {
			old = true
			break
		}
	}
	if old {
		first, last = extractCustomerOld(lines)
	} else {
		first, last = extractCustomerNew(lines)
	}
	if first == "" {
		// Fallback: any line anywhere that looks like a person's name.
		for _, s := range lines {
			if looksLikeName(s) {
				return splitName(s)
			}
		}
	}
	return first, last
}

// extractStore finds the store identifier: a direct NNN-NN style token, or a
// configured alias. Alias lookup is deterministic over sorted store IDs.
func extractStore(lines []string, aliases map[string][]string) string {
	for _, line := range lines {
		if m := storeIDRe.FindString(line); m != "" {
			return m
		}
	}
	ids := make([]string, 0, len(aliases))
	for id := range aliases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	upper := make([]string, len(lines))
	for i, l := range lines {
		upper[i] = strings.ToUpper(l)
	}
	for _, id := range ids {
		for _, alias := range aliases[id] {
			a := strings.ToUpper(alias)
			for _, line := range upper {
				if a != "" && strings.Contains(line, a) {
					return id
				}
			}
		}
	}
	return ""
}
