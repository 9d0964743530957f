package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is an immutable point-in-time view of the obligation graph plus a
// reference cash balance. It owns deep copies of its entities: nothing a
// caller does to the input records after construction can leak in, and
// nothing handed out can mutate the snapshot. A snapshot and its derived
// results are exclusively owned by the run that built them, which is what
// makes concurrent per-scenario runs safe without coordination.
type Snapshot struct {
	id             uuid.UUID
	asOf           time.Time
	cashBalance    decimal.Decimal
	counterparties map[string]Counterparty
	obligations    []Obligation
}

// NewSnapshot assembles a snapshot from already-validated records. Use the
// snapshot builder rather than calling this directly; the builder owns
// validation, reference resolution and overdue flagging.
func NewSnapshot(asOf time.Time, balance decimal.Decimal, counterparties map[string]Counterparty, obligations []Obligation) *Snapshot {
	cps := make(map[string]Counterparty, len(counterparties))
	for id, cp := range counterparties {
		cps[id] = cp
	}
	obs := make([]Obligation, len(obligations))
	for i, o := range obligations {
		obs[i] = o.Clone()
	}
	return &Snapshot{
		id:             uuid.New(),
		asOf:           DayOf(asOf),
		cashBalance:    balance,
		counterparties: cps,
		obligations:    obs,
	}
}

// ID returns the snapshot's unique identifier
func (s *Snapshot) ID() uuid.UUID { return s.id }

// AsOf returns the valuation date, normalized to a UTC day
func (s *Snapshot) AsOf() time.Time { return s.asOf }

// CashBalance returns the reference cash balance at AsOf
func (s *Snapshot) CashBalance() decimal.Decimal { return s.cashBalance }

// Counterparty looks up a counterparty by id
func (s *Snapshot) Counterparty(id string) (Counterparty, bool) {
	cp, ok := s.counterparties[id]
	return cp, ok
}

// CounterpartyCount returns the number of counterparties in the snapshot
func (s *Snapshot) CounterpartyCount() int { return len(s.counterparties) }

// Obligations returns a copy of the obligation set, ordered by due date then id
func (s *Snapshot) Obligations() []Obligation {
	obs := make([]Obligation, len(s.obligations))
	for i, o := range s.obligations {
		obs[i] = o.Clone()
	}
	return obs
}

// DayOf truncates a timestamp to its UTC calendar day
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a to b, negative when b precedes a
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)) / (24 * time.Hour))
}
