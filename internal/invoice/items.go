package invoice

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

var (
	skuRe   = regexp.MustCompile(`^[0-9]{6,8}$`)
	moneyRe = regexp.MustCompile(`-?[0-9]{1,3}(?:[.,][0-9]{3})*(?:[.,][0-9]{2})`)
)

const itemTableHeader = "Κωδικός Είδους"

// Keywords that mark a line as a product description rather than a label or
// an address fragment.
var productKeywords = []string{
	"APPLE", "IPHONE", "CHARGER", "CABLE", "CASE", "USB", "SAMSUNG", "MAC",
	"JBL", "SPEAKER", "EARPODS", "HANDSFREE", "PORTABLE",
}

var tableEndMarkers = []string{
	"ΣΚΟΠΟΣ ΔΙΑΚΙΝΗΣΗΣ", "ΤΟΠΟΣ ΑΠΟΣΤΟΛΗΣ", "ΣΧΟΛΙΑ", "Συνολική", "ΤΗΛΕΦΩΝΟ:", "ΠΟΛΗ:",
}

var tableLabels = map[string]bool{
	"Ώρα": true, "Μ.Μ.": true, "Περιγραφή": true, "Ποσότητα": true,
	"Τιμή Μονάδος": true, "Σειρά": true, "TMX": true,
}

func hasProductKeyword(s string) bool {
	u := strings.ToUpper(s)
	for _, kw := range productKeywords {
		if strings.Contains(u, kw) {
			return true
		}
	}
	return false
}

// parseItems extracts the invoice line items: SKU, description, gross price.
// PDF extraction does not preserve table geometry, so descriptions are matched
// to SKUs by line proximity and prices by a value heuristic. phoneToExclude
// keeps an 8-digit phone number from being mistaken for a SKU.
func parseItems(lines []string, phoneToExclude string) []ticket.Item {
	tableStart := -1
	for i, line := range lines {
		if strings.Contains(line, itemTableHeader) {
			tableStart = i
			break
		}
	}
	if tableStart < 0 {
		return nil
	}

	var skus []string
	skuPos := map[string]int{}
	skuDesc := map[string]string{}

	for i := tableStart + 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if skuRe.MatchString(line) && line != phoneToExclude {
			skus = append(skus, line)
			skuPos[line] = i
			continue
		}
		// "SKU description" on a single line.
		parts := strings.SplitN(line, " ", 2)
		if len(parts) == 2 && skuRe.MatchString(parts[0]) && parts[0] != phoneToExclude {
			skus = append(skus, parts[0])
			skuPos[parts[0]] = i
			if hasProductKeyword(parts[1]) {
				skuDesc[parts[0]] = strings.TrimSpace(parts[1])
			}
		}
	}
	if len(skus) == 0 {
		return nil
	}

	maxSKUPos := tableStart
	for _, p := range skuPos {
		if p > maxSKUPos {
			maxSKUPos = p
		}
	}

	// Standalone description lines inside the table area.
	type descLine struct {
		pos  int
		text string
	}
	var descs []descLine
scan:
	for i := tableStart + 1; i < len(lines) && i < maxSKUPos+15; i++ {
		candidate := strings.TrimSpace(lines[i])
		for _, marker := range tableEndMarkers {
			if strings.Contains(candidate, marker) {
				break scan
			}
		}
		if skuRe.MatchString(candidate) || tableLabels[candidate] {
			continue
		}
		if first := strings.Fields(candidate); len(first) > 0 && skuRe.MatchString(first[0]) {
			if _, known := skuPos[first[0]]; known {
				continue
			}
		}
		if strings.Contains(strings.ToLower(candidate), "σειριακός") {
			continue
		}
		digitsOnly := strings.NewReplacer(".", "", ",", "", " ", "").Replace(candidate)
		if digitsOnly != "" && strings.Trim(digitsOnly, "0123456789") == "" {
			continue
		}
		if m := moneyRe.FindString(candidate); m == candidate {
			continue
		}
		if len(candidate) > 3 && hasProductKeyword(candidate) {
			descs = append(descs, descLine{pos: i, text: candidate})
		}
	}

	// Nearest unused description for each SKU still missing one.
	used := map[string]bool{}
	for _, d := range skuDesc {
		used[d] = true
	}
	for _, sku := range skus {
		if _, ok := skuDesc[sku]; ok {
			continue
		}
		best, bestDist := "", math.MaxInt
		for _, d := range descs {
			if used[d.text] {
				continue
			}
			dist := d.pos - skuPos[sku]
			if dist < 0 {
				dist = -dist
			}
			if dist < bestDist {
				bestDist, best = dist, d.text
			}
		}
		if best != "" {
			skuDesc[sku] = best
			used[best] = true
		}
	}

	prices := collectProductPrices(lines, len(skus))

	items := make([]ticket.Item, len(skus))
	for i, sku := range skus {
		items[i] = ticket.Item{SKU: sku, Description: skuDesc[sku]}
	}

	if len(prices) == len(items) {
		// Both sides sorted by likely value: expensive items are phones and
		// laptops, cheap ones are accessories.
		order := make([]int, len(items))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return valueScore(items[order[a]].Description) > valueScore(items[order[b]].Description)
		})
		sort.Sort(sort.Reverse(sort.Float64Slice(prices)))
		for rank, idx := range order {
			items[idx].Gross = prices[rank]
		}
	} else {
		for i := range items {
			if i < len(prices) {
				items[i].Gross = prices[i]
			}
		}
	}
	return items
}

// collectProductPrices gathers every money token in the document, keeps
// plausible product prices, and drops VAT-derived amounts and totals (sums of
// other prices).
func collectProductPrices(lines []string, wantAtLeast int) []float64 {
	seen := map[float64]bool{}
	var all []float64
	for _, line := range lines {
		for _, m := range moneyRe.FindAllString(line, -1) {
			v, err := ParseAmount(m)
			if err != nil {
				continue
			}
			if v >= 10 && v <= 10000 && !seen[v] {
				seen[v] = true
				all = append(all, v)
			}
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(all)))

	var products []float64
	for _, p := range all {
		if !isVATAmount(p, all) && !isSumOfOthers(p, all) {
			products = append(products, p)
		}
	}

	// Over-filtered: fall back to the smallest plausible prices, since totals
	// are always larger than the products they sum.
	if len(products) < wantAtLeast {
		asc := append([]float64(nil), all...)
		sort.Float64s(asc)
		if len(asc) > wantAtLeast {
			asc = asc[:wantAtLeast]
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(asc)))
		products = asc
	}
	return products
}

func isVATAmount(price float64, prices []float64) bool {
	const vatRate = 0.19
	for _, base := range prices {
		if base != price && math.Abs(price-base*vatRate) < 0.5 {
			return true
		}
	}
	return false
}

func isSumOfOthers(price float64, prices []float64) bool {
	others := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p != price {
			others = append(others, p)
		}
	}
	for i := 0; i < len(others); i++ {
		for j := i + 1; j < len(others); j++ {
			if math.Abs(price-(others[i]+others[j])) < 1 {
				return true
			}
			for k := j + 1; k < len(others); k++ {
				if math.Abs(price-(others[i]+others[j]+others[k])) < 1 {
					return true
				}
			}
		}
	}
	return false
}

func valueScore(desc string) int {
	u := strings.ToUpper(desc)
	switch {
	case strings.Contains(u, "IPHONE"), strings.Contains(u, "IPAD"), strings.Contains(u, "MACBOOK"):
		return 1000
	case strings.Contains(u, "SAMSUNG") && strings.Contains(u, "PHONE"):
		return 1000
	case strings.Contains(u, "SPEAKER") && strings.Contains(u, "PORTABLE"):
		return 100
	case strings.Contains(u, "JBL"):
		return 100
	case strings.Contains(u, "CHARGER"), strings.Contains(u, "CABLE"), strings.Contains(u, "CASE"):
		return 10
	case strings.Contains(u, "EARPODS"), strings.Contains(u, "HANDSFREE"):
		return 10
	default:
		return 50
	}
}
