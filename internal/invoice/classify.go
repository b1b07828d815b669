package invoice

import (
	"regexp"
	"strings"

	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

// Classifier detects one ticket type. A document matches when any anchor
// appears in the text (case-insensitive) or any pattern matches.
type Classifier struct {
	Type     ticket.Type
	Anchors  []string
	Patterns []*regexp.Regexp
}

// Match reports whether the classifier's detection rule fires on text.
// text must already be upper-cased by the caller.
func (c Classifier) Match(text string) bool {
	for _, a := range c.Anchors {
		if a != "" && strings.Contains(text, strings.ToUpper(a)) {
			return true
		}
	}
	for _, p := range c.Patterns {
		if p != nil && p.MatchString(text) {
			return true
		}
	}
	return false
}

// DefaultClassifiers returns the built-in detection rules in priority order.
// The order fixes how matches are reported; it does not break ties. An
// invoice firing more than one rule is rejected as ambiguous.
func DefaultClassifiers() []Classifier {
	return []Classifier{
		{Type: ticket.TypePromo, Anchors: []string{"PROMO", "ΠΡΟΩΘΗΤΙΚ"}},
		{Type: ticket.TypeQuickRepairPrinter, Anchors: []string{"PRINTER", "ΕΚΤΥΠΩΤ", "INKJET", "LASERJET"}},
		{Type: ticket.TypeQuickRepairLaptop, Anchors: []string{"LAPTOP", "NOTEBOOK", "MACBOOK"}},
		{Type: ticket.TypeQuickRepairTablet, Anchors: []string{"TABLET", "IPAD"}},
		{Type: ticket.TypeQuickRepairAppliance, Anchors: []string{"APPLIANCE", "ΟΙΚΙΑΚΗ ΣΥΣΚΕΥΗ"}},
		{Type: ticket.TypeQuickRepairPhone, Anchors: []string{"IPHONE", "SMARTPHONE", "ΚΙΝΗΤΟ"}},
	}
}

// Classify runs the classifiers against the document text. Exactly one rule
// must fire; zero matches and multiple matches both fail rather than guess.
func Classify(classifiers []Classifier, doc *Document) (ticket.Type, error) {
	if len(doc.Lines) == 0 {
		return "", parseErr(ReasonEmptyDocument, "", "no text extracted from %s", doc.Source)
	}
	text := strings.ToUpper(doc.Text())

	var matched []ticket.Type
	for _, c := range classifiers {
		if c.Match(text) {
			matched = append(matched, c.Type)
		}
	}
	switch len(matched) {
	case 0:
		return "", parseErr(ReasonNoTypeMatch, "", "no classifier signature matched %s", doc.Source)
	case 1:
		return matched[0], nil
	default:
		names := make([]string, len(matched))
		for i, t := range matched {
			names[i] = string(t)
		}
		return "", parseErr(ReasonAmbiguousType, matched[0], "matched %s", strings.Join(names, ", "))
	}
}
