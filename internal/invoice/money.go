package invoice

import (
	"regexp"
	"strconv"
	"strings"
)

var normalizedAmountRe = regexp.MustCompile(`^-?\d+\.\d{2}$`)

// ParseAmount parses a currency token that may use either the European
// ("1.234,56") or the Anglo ("1,234.56") separator convention. When both
// separators appear, the one occurring last is the decimal separator. Two
// decimal digits are required; anything else is rejected rather than
// truncated.
func ParseAmount(s string) (float64, error) {
	t := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if t == "" {
		return 0, parseErr(ReasonBadAmount, "", "empty amount")
	}

	dot := strings.LastIndex(t, ".")
	comma := strings.LastIndex(t, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if dot < comma {
			t = strings.ReplaceAll(t, ".", "")
		} else {
			t = strings.ReplaceAll(t, ",", "")
		}
	case comma >= 0 && strings.Count(t, ",") > 1:
		// Multiple commas can only be thousands separators.
		t = strings.ReplaceAll(t, ",", "")
	case dot >= 0 && strings.Count(t, ".") > 1:
		t = strings.ReplaceAll(t, ".", "")
	}
	t = strings.ReplaceAll(t, ",", ".")

	if !normalizedAmountRe.MatchString(t) {
		return 0, parseErr(ReasonBadAmount, "", "malformed amount %q", s)
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, parseErr(ReasonBadAmount, "", "malformed amount %q", s)
	}
	return v, nil
}
