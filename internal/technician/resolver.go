// Package technician maps a (store, ticket type) pair to the technician the
// ticket is assigned to, using per-store rotation pools from configuration.
package technician

import (
	"fmt"
	"sync"

	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

// ID identifies a technician in the CRM's assignment dropdown.
type ID string

// Pools is the assignment configuration: store ID → ticket type → rotation
// pool, in rotation order.
type Pools map[string]map[ticket.Type][]ID

// NoTechnicianError reports that a store has no configured pool for a ticket
// type. It is a configuration problem, never retried.
type NoTechnicianError struct {
	StoreID string
	Type    ticket.Type
}

func (e *NoTechnicianError) Error() string {
	return fmt.Sprintf("no technician pool for store %s, ticket type %s", e.StoreID, e.Type)
}

type poolKey struct {
	store string
	typ   ticket.Type
}

// Resolver resolves assignments. Resolve is a deterministic read: repeated
// calls for the same inputs return the same technician. The rotation pointer
// moves only through Advance, which callers invoke solely on a confirmed
// successful ticket creation.
type Resolver struct {
	mu      sync.Mutex
	pools   Pools
	cursors map[poolKey]int
}

// NewResolver builds a resolver over the given pools.
func NewResolver(pools Pools) *Resolver {
	return &Resolver{pools: pools, cursors: make(map[poolKey]int)}
}

func (r *Resolver) pool(storeID string, typ ticket.Type) []ID {
	byType, ok := r.pools[storeID]
	if !ok {
		return nil
	}
	return byType[typ]
}

// Resolve returns the technician currently at the rotation pointer.
func (r *Resolver) Resolve(storeID string, typ ticket.Type) (ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool := r.pool(storeID, typ)
	if len(pool) == 0 {
		return "", &NoTechnicianError{StoreID: storeID, Type: typ}
	}
	cur := r.cursors[poolKey{storeID, typ}] % len(pool)
	return pool[cur], nil
}

// Advance moves the rotation pointer for (storeID, typ) one step. Call it
// only after the ticket reached its terminal success state; retried or failed
// attempts must not advance the rotation.
func (r *Resolver) Advance(storeID string, typ ticket.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool := r.pool(storeID, typ)
	if len(pool) == 0 {
		return
	}
	key := poolKey{storeID, typ}
	r.cursors[key] = (r.cursors[key] + 1) % len(pool)
}
