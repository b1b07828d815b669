package driver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

func TestPick_Deterministic(t *testing.T) {
	const seed = "123456ΑΠΔΑ000789"
	first := pick(visibleDamageOptions, seed)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, pick(visibleDamageOptions, seed))
	}
	assert.Contains(t, visibleDamageOptions, first)
}

func TestRepairDescription_ComposesParts(t *testing.T) {
	const seed = "654321ΑΠΔΑ112233"
	itemsLeft := itemsLeftText(seed)
	desc := repairDescription(ticket.TypeQuickRepairLaptop, itemsLeft, seed)

	assert.True(t, strings.HasPrefix(desc, itemsLeft), desc)
	assert.Contains(t, desc, "ETA:")

	var matched bool
	for _, p := range problemsByType[ticket.TypeQuickRepairLaptop] {
		if strings.Contains(desc, p) {
			matched = true
		}
	}
	assert.True(t, matched, "description must carry a laptop problem: %s", desc)
}

func TestResolutionText_PromoVsRepair(t *testing.T) {
	const seed = "123456ΑΠΔΑ000789"
	assert.Contains(t, promoResolutions, resolutionText(ticket.TypePromo, seed))
	assert.Contains(t, normalResolutions, resolutionText(ticket.TypeQuickRepairPhone, seed))
}

func TestFormatPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"99123456", "+35799123456"},
		{"99 123 456", "+35799123456"},
		{"99-123-456", "+35799123456"},
		{"0099123456", "+35799123456"},
		{"+35799123456", "+35799123456"},
		{"", "+35700000000"},
		{"n/a", "+35700000000"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			assert.Equal(t, c.want, formatPhone(c.in))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "INIT", StateInit.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateSubmitted.Terminal())
}

func TestContextAdvance_PanicsOnBackwards(t *testing.T) {
	tc := newContext(phoneRecord())
	tc.advance(StateSubmitted)
	assert.Panics(t, func() { tc.advance(StateFormOpened) })

	// FAILED is reachable from anywhere.
	assert.NotPanics(t, func() { tc.advance(StateFailed) })
}
