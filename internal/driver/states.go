package driver

import (
	"fmt"

	"github.com/uncertaindrop/tickethelper/internal/technician"
	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

// State is the workflow driver's position in the per-ticket protocol. The
// sequence is strictly forward: a state may loop back onto itself through a
// bounded retry, but no state is ever re-entered after a later one succeeded.
type State int

const (
	StateInit State = iota
	StateAuthenticated
	StateFormOpened
	StateFieldsFilled
	StateTechnicianAssigned
	StateSubmitted
	StateStatusAdvanced
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateInit:               "INIT",
	StateAuthenticated:      "AUTHENTICATED",
	StateFormOpened:         "FORM_OPENED",
	StateFieldsFilled:       "FIELDS_FILLED",
	StateTechnicianAssigned: "TECHNICIAN_ASSIGNED",
	StateSubmitted:          "SUBMITTED",
	StateStatusAdvanced:     "STATUS_ADVANCED",
	StateDone:               "DONE",
	StateFailed:             "FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether s ends the run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Context is the transient working state for one in-flight ticket. It is
// created when processing starts and destroyed when the run reaches DONE or
// FAILED.
type Context struct {
	Record     *ticket.Record
	Technician technician.ID
	State      State
	Attempts   map[string]int // retries consumed per step name
	Notes      []string       // accumulated diagnostics for the terminal report
	TicketID   string         // CRM ticket identifier, known after submission
	Trail      []string       // statuses applied so far, in order
}

func newContext(rec *ticket.Record) *Context {
	return &Context{
		Record:   rec,
		State:    StateInit,
		Attempts: make(map[string]int),
	}
}

// advance moves the context to next. Moving backwards is a programming error.
func (c *Context) advance(next State) {
	if next < c.State && next != StateFailed {
		panic(fmt.Sprintf("workflow state moved backwards: %s -> %s", c.State, next))
	}
	c.State = next
}

func (c *Context) note(format string, args ...any) {
	c.Notes = append(c.Notes, fmt.Sprintf(format, args...))
}
