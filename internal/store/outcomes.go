// Package store persists terminal ticket outcomes to Postgres. The table is
// the audit trail the back office queries when a customer asks where their
// repair stands and the CRM is unreachable.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OutcomeStore writes one row per processed invoice.
type OutcomeStore struct {
	pool *pgxpool.Pool
}

// NewOutcomeStoreFromConnString connects and ensures the schema exists.
func NewOutcomeStoreFromConnString(ctx context.Context, connString string) (*OutcomeStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to outcome store: %w", err)
	}
	s := &OutcomeStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool. Safe on a nil store.
func (s *OutcomeStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Outcome is one terminal row.
type Outcome struct {
	Invoice     string
	TicketID    string
	TicketType  string
	StoreID     string
	Technician  string
	FinalStatus string
	Failure     string
	Reason      string
	Artifact    string
	At          time.Time
}

func (s *OutcomeStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ticket_outcomes (
			id           BIGSERIAL PRIMARY KEY,
			invoice      TEXT NOT NULL,
			ticket_id    TEXT,
			ticket_type  TEXT NOT NULL,
			store_id     TEXT NOT NULL,
			technician   TEXT,
			final_status TEXT,
			failure      TEXT,
			reason       TEXT,
			artifact     TEXT,
			at           TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure outcome schema: %w", err)
	}
	return nil
}

// Save inserts one outcome. Safe on a nil store so the runner works without
// a database configured.
func (s *OutcomeStore) Save(ctx context.Context, o Outcome) error {
	if s == nil {
		return nil
	}
	if o.At.IsZero() {
		o.At = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ticket_outcomes
			(invoice, ticket_id, ticket_type, store_id, technician,
			 final_status, failure, reason, artifact, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.Invoice, o.TicketID, o.TicketType, o.StoreID, o.Technician,
		o.FinalStatus, o.Failure, o.Reason, o.Artifact, o.At)
	if err != nil {
		return fmt.Errorf("save outcome: %w", err)
	}
	return nil
}

// CompletedCount reports how many invoices reached a final status since the
// given time.
func (s *OutcomeStore) CompletedCount(ctx context.Context, since time.Time) (int, error) {
	if s == nil {
		return 0, nil
	}
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM ticket_outcomes
		WHERE failure = '' AND at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count outcomes: %w", err)
	}
	return n, nil
}
