package forecast

import "github.com/shopspring/decimal"

// Ledger accumulates dated net cash flows over a fixed grid of consecutive
// slots (forecast periods, or single days when the optimizer simulates at
// day granularity) and answers running-balance questions by prefix sum.
// Slot indexes must stay within [0, Slots()); the grid is sized up front.
type Ledger struct {
	opening decimal.Decimal
	flows   []decimal.Decimal
}

// NewLedger creates a ledger with the given opening balance and slot count
func NewLedger(opening decimal.Decimal, slots int) *Ledger {
	return &Ledger{
		opening: opening,
		flows:   make([]decimal.Decimal, slots),
	}
}

// Slots returns the size of the grid
func (l *Ledger) Slots() int { return len(l.flows) }

// Add records a net cash flow in a slot; outflows are negative amounts
func (l *Ledger) Add(slot int, amount decimal.Decimal) {
	l.flows[slot] = l.flows[slot].Add(amount)
}

// Balances returns the running balance at the end of each slot, compounded
// from the opening balance
func (l *Ledger) Balances() []decimal.Decimal {
	balances := make([]decimal.Decimal, len(l.flows))
	running := l.opening
	for i, flow := range l.flows {
		running = running.Add(flow)
		balances[i] = running
	}
	return balances
}

// Min returns the slot and value of the lowest running balance; the earliest
// slot wins on ties. Returns the opening balance with slot -1 on an empty grid.
func (l *Ledger) Min() (int, decimal.Decimal) {
	minSlot, minBal := -1, l.opening
	running := l.opening
	for i, flow := range l.flows {
		running = running.Add(flow)
		if minSlot == -1 || running.LessThan(minBal) {
			minSlot, minBal = i, running
		}
	}
	return minSlot, minBal
}

// FirstBelow returns the earliest slot whose running balance drops below the
// threshold, with that balance; ok is false when no slot breaches.
func (l *Ledger) FirstBelow(threshold decimal.Decimal) (int, decimal.Decimal, bool) {
	running := l.opening
	for i, flow := range l.flows {
		running = running.Add(flow)
		if running.LessThan(threshold) {
			return i, running, true
		}
	}
	return 0, decimal.Zero, false
}

// Clone returns an independent copy of the ledger
func (l *Ledger) Clone() *Ledger {
	flows := make([]decimal.Decimal, len(l.flows))
	copy(flows, l.flows)
	return &Ledger{opening: l.opening, flows: flows}
}
