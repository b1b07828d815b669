package invoice

import (
	"fmt"

	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

// Well-known ParseError reasons.
const (
	ReasonNoTypeMatch   = "no_type_match"
	ReasonAmbiguousType = "ambiguous_type"
	ReasonEmptyDocument = "empty_document"
	ReasonBadAmount     = "bad_amount"
)

// MissingFieldReason builds the reason string for a required field that could
// not be located.
func MissingFieldReason(field string) string {
	return "missing_field:" + field
}

// ParseError reports that extraction could not produce a valid ticket record.
// MatchedType is empty when classification itself failed.
type ParseError struct {
	Reason      string
	MatchedType ticket.Type
	Detail      string
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("invoice parse failed: %s", e.Reason)
	if e.MatchedType != "" {
		msg += fmt.Sprintf(" (type %s)", e.MatchedType)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func parseErr(reason string, matched ticket.Type, format string, args ...any) *ParseError {
	return &ParseError{
		Reason:      reason,
		MatchedType: matched,
		Detail:      fmt.Sprintf(format, args...),
	}
}
