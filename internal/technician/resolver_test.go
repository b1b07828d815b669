package technician

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

func testPools() Pools {
	return Pools{
		"LIM-01": {
			ticket.TypeQuickRepairPhone: {"tech-a", "tech-b", "tech-c"},
			ticket.TypePromo:            {"tech-p"},
		},
	}
}

func TestResolver_ResolveIsStable(t *testing.T) {
	r := NewResolver(testPools())

	// Resolve is a read: repeated calls without Advance return the same
	// technician, so a retried ticket keeps its assignee.
	for i := 0; i < 3; i++ {
		id, err := r.Resolve("LIM-01", ticket.TypeQuickRepairPhone)
		require.NoError(t, err)
		assert.Equal(t, ID("tech-a"), id)
	}
}

func TestResolver_AdvanceRotates(t *testing.T) {
	r := NewResolver(testPools())

	want := []ID{"tech-a", "tech-b", "tech-c", "tech-a"}
	for _, w := range want {
		id, err := r.Resolve("LIM-01", ticket.TypeQuickRepairPhone)
		require.NoError(t, err)
		assert.Equal(t, w, id)
		r.Advance("LIM-01", ticket.TypeQuickRepairPhone)
	}
}

func TestResolver_IndependentCursors(t *testing.T) {
	r := NewResolver(testPools())
	r.Advance("LIM-01", ticket.TypeQuickRepairPhone)

	id, err := r.Resolve("LIM-01", ticket.TypePromo)
	require.NoError(t, err)
	assert.Equal(t, ID("tech-p"), id)
}

func TestResolver_MissingPool(t *testing.T) {
	r := NewResolver(testPools())

	_, err := r.Resolve("NIC-03", ticket.TypeQuickRepairPhone)
	var noTech *NoTechnicianError
	require.ErrorAs(t, err, &noTech)
	assert.Equal(t, "NIC-03", noTech.StoreID)

	_, err = r.Resolve("LIM-01", ticket.TypeQuickRepairLaptop)
	require.ErrorAs(t, err, &noTech)

	// Advancing an unconfigured pool is a no-op, not a panic.
	r.Advance("NIC-03", ticket.TypeQuickRepairPhone)
}
