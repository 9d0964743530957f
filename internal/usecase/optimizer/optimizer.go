package optimizer

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
	"github.com/finworks/capflow-backend/internal/usecase/forecast"
)

// dailyFinancingRate is the opportunity value of holding one currency unit
// of cash for one day, taken from the treasury's short-term borrowing rate.
var dailyFinancingRate = decimal.NewFromFloat(0.0001)

// item is the working state of one obligation during a run: its clamped due
// day, the last day its discount qualifies (-1 when none or expired) and the
// currently assigned settlement day.
type item struct {
	ob          domain.Obligation
	risk        float64
	pastDue     bool
	dueDay      int
	discountDay int
	latestDay   int
	settleDay   int
}

// amountOn returns the settlement amount for a given day: the discounted
// amount inside the discount window, face otherwise
func (it *item) amountOn(day int) decimal.Decimal {
	if it.discountDay >= 0 && day <= it.discountDay {
		return it.ob.DiscountedAmount()
	}
	return it.ob.Amount
}

// flowOn returns the signed ledger flow for settling on a given day.
// Payables leave in full; receivable inflows are risk-weighted, keeping the
// simulated balance on the conservative floor track.
func (it *item) flowOn(day int) decimal.Decimal {
	amount := it.amountOn(day)
	if it.ob.Direction == domain.DirectionPayable {
		return amount.Neg()
	}
	return amount.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(it.risk)))
}

// run carries one optimization over an immutable snapshot
type run struct {
	snap        *domain.Snapshot
	pol         Policy
	wd, wl      decimal.Decimal
	items       []*item
	ledger      *forecast.Ledger
	bufferBound bool // the buffer rejected or forced at least one move
}

// Optimize assigns a settlement day to every unsettled obligation in the
// snapshot, maximizing the policy-weighted objective of discount value
// captured minus late penalties plus the financing value of cash-timing
// shifts, subject to the cash buffer evaluated on a day-by-day simulated
// balance.
//
// The search is a deterministic greedy ranked assignment, not a solver:
//  1. Baseline: everything settles on its (clamped) due day; the baseline's
//     objective is the zero reference
//  2. Discount capture: payables with a live discount move to the last
//     qualifying day, best discount-rate-per-day-of-acceleration first,
//     ties by earlier due date, then lower counterparty risk, then id
//  3. Receivable acceleration: early-settlement incentives are granted when
//     the weighted financing gain beats the discount given up
//  4. Voluntary delays: payables stretch to the delay cap when the policy
//     weighting values runway above the late cost
//  5. Repair: if the buffer is breached, payables scheduled at or before the
//     first breach are pushed to their delay cap until the breach clears
//
// DiscountCapturePriority=false runs the liquidity moves (4, 5) before
// capture (2). A move is admissible only if no day ends below the buffer
// and lower than the incumbent schedule left it, so pre-existing shortfalls
// never block unrelated improvements. If the buffer cannot be satisfied the
// result carries Feasible=false plus the earliest shortfall day and the
// relaxation needed; infeasibility is never an error.
func Optimize(snap *domain.Snapshot, pol Policy) (*domain.OptimizationResult, error) {
	if err := pol.Validate(); err != nil {
		return nil, err
	}

	r := &run{snap: snap, pol: pol}
	r.wd, r.wl = pol.Weighting.normalized()
	r.prepare()

	if pol.DiscountCapturePriority {
		r.captureDiscounts()
		r.accelerateReceivables()
		r.stretchPayables()
		r.repairBuffer()
	} else {
		r.stretchPayables()
		r.accelerateReceivables()
		r.repairBuffer()
		r.captureDiscounts()
	}

	return r.result(), nil
}

// prepare builds the working items and the baseline due-date-only ledger
func (r *run) prepare() {
	horizon := 1
	for _, o := range r.snap.Obligations() {
		if !o.Status.Settleable() {
			continue
		}
		it := &item{ob: o, discountDay: -1}
		if cp, ok := r.snap.Counterparty(o.CounterpartyID); ok {
			it.risk = cp.RiskScore
		}
		it.pastDue = domain.DaysBetween(r.snap.AsOf(), o.DueDate) < 0
		it.dueDay = clampDay(r.snap.AsOf(), o.DueDate)
		if o.Discount != nil && !domain.DayOf(o.Discount.By).Before(r.snap.AsOf()) {
			it.discountDay = clampDay(r.snap.AsOf(), o.Discount.By)
		}
		it.latestDay = it.dueDay
		if o.Direction == domain.DirectionPayable {
			it.latestDay += r.pol.MaxDelayDays
		}
		if it.latestDay+1 > horizon {
			horizon = it.latestDay + 1
		}
		r.items = append(r.items, it)
	}

	// canonical order so pass outcomes never depend on input order
	sort.SliceStable(r.items, func(i, j int) bool {
		if r.items[i].dueDay != r.items[j].dueDay {
			return r.items[i].dueDay < r.items[j].dueDay
		}
		return r.items[i].ob.ID < r.items[j].ob.ID
	})

	r.ledger = forecast.NewLedger(r.snap.CashBalance(), horizon)
	for _, it := range r.items {
		it.settleDay = it.dueDay
		r.ledger.Add(it.settleDay, it.flowOn(it.settleDay))
	}
}

// contribution returns the discount/penalty cash impact and the weighted
// objective contribution of settling an item on a given day, both relative
// to the due-date-only baseline. Settling everything on due therefore
// scores zero, and the result's objective value reads directly as the
// improvement over that baseline.
func (r *run) contribution(it *item, day int) (impact, contrib decimal.Decimal) {
	amount := it.amountOn(day)
	impact = it.amountOn(it.dueDay).Sub(amount) // payable discount captured, or receivable discount granted
	if it.ob.Direction == domain.DirectionReceivable {
		impact = impact.Neg()
	}

	shift := day - it.dueDay // positive = settling late
	var financing decimal.Decimal
	if it.ob.Direction == domain.DirectionPayable {
		if shift > 0 {
			penalty := amount.Mul(dailyFinancingRate).Mul(decimal.NewFromInt(int64(shift)))
			impact = impact.Sub(penalty)
		}
		financing = amount.Mul(dailyFinancingRate).Mul(decimal.NewFromInt(int64(shift)))
	} else {
		collected := it.flowOn(day)
		financing = collected.Mul(dailyFinancingRate).Mul(decimal.NewFromInt(int64(-shift)))
	}

	contrib = r.wd.Mul(impact).Add(r.wl.Mul(financing))
	return impact, contrib
}

// move re-times an item on the ledger
func (r *run) move(it *item, day int) {
	r.ledger.Add(it.settleDay, it.flowOn(it.settleDay).Neg())
	r.ledger.Add(day, it.flowOn(day))
	it.settleDay = day
}

// admissible reports whether moving the item opens a new buffer breach:
// every candidate day below the buffer must be no worse than the incumbent
// schedule already left it
func (r *run) admissible(it *item, day int) bool {
	trial := r.ledger.Clone()
	trial.Add(it.settleDay, it.flowOn(it.settleDay).Neg())
	trial.Add(day, it.flowOn(day))

	incumbent := r.ledger.Balances()
	candidate := trial.Balances()
	for i := range candidate {
		if candidate[i].LessThan(r.pol.MinCashBuffer) && candidate[i].LessThan(incumbent[i]) {
			return false
		}
	}
	return true
}

// captureDiscounts moves discount-bearing payables to the last qualifying
// day when the weighted gain is positive and the buffer allows
func (r *run) captureDiscounts() {
	var candidates []*item
	for _, it := range r.items {
		if it.ob.Direction == domain.DirectionPayable && it.discountDay >= 0 && it.discountDay < it.settleDay {
			candidates = append(candidates, it)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return rankCapture(candidates[i], candidates[j])
	})

	for _, it := range candidates {
		_, contrib := r.contribution(it, it.discountDay)
		if !contrib.IsPositive() {
			continue
		}
		if !r.admissible(it, it.discountDay) {
			r.bufferBound = true
			continue
		}
		r.move(it, it.discountDay)
	}
}

// rankCapture orders capture candidates: higher discount-rate-per-day of
// acceleration first, ties by earlier due date, then lower counterparty
// risk, then id. The rate-per-day comparison cross-multiplies so a discount
// reachable with zero acceleration ranks above everything.
func rankCapture(a, b *item) bool {
	ra, rb := a.ob.Discount.Rate, b.ob.Discount.Rate
	da := decimal.NewFromInt(int64(a.dueDay - a.discountDay))
	db := decimal.NewFromInt(int64(b.dueDay - b.discountDay))
	left, right := ra.Mul(db), rb.Mul(da)
	if !left.Equal(right) {
		return left.GreaterThan(right)
	}
	if a.dueDay != b.dueDay {
		return a.dueDay < b.dueDay
	}
	if a.risk != b.risk {
		return a.risk < b.risk
	}
	return a.ob.ID < b.ob.ID
}

// accelerateReceivables grants early-settlement discounts on receivables
// that carry them when the weighted financing gain exceeds the discount
// cost; cheapest discount-per-day-gained first
func (r *run) accelerateReceivables() {
	var candidates []*item
	for _, it := range r.items {
		if it.ob.Direction == domain.DirectionReceivable && it.discountDay >= 0 && it.discountDay < it.settleDay {
			candidates = append(candidates, it)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return rankAccelerate(candidates[i], candidates[j])
	})

	for _, it := range candidates {
		_, contrib := r.contribution(it, it.discountDay)
		if !contrib.IsPositive() {
			continue
		}
		if !r.admissible(it, it.discountDay) {
			r.bufferBound = true
			continue
		}
		r.move(it, it.discountDay)
	}
}

// rankAccelerate orders acceleration candidates by discount cost per day of
// cash gained, cheapest first, with the same tie-breaks as capture
func rankAccelerate(a, b *item) bool {
	ra, rb := a.ob.Discount.Rate, b.ob.Discount.Rate
	da := decimal.NewFromInt(int64(a.dueDay - a.discountDay))
	db := decimal.NewFromInt(int64(b.dueDay - b.discountDay))
	left, right := ra.Mul(db), rb.Mul(da)
	if !left.Equal(right) {
		return left.LessThan(right)
	}
	if a.dueDay != b.dueDay {
		return a.dueDay < b.dueDay
	}
	if a.risk != b.risk {
		return a.risk < b.risk
	}
	return a.ob.ID < b.ob.ID
}

// stretchPayables pushes payables to the delay cap when the policy values
// the extra runway above the late cost; admissibility still applies
func (r *run) stretchPayables() {
	if r.pol.MaxDelayDays == 0 {
		return
	}
	for _, it := range r.items {
		if it.ob.Direction != domain.DirectionPayable || it.settleDay != it.dueDay {
			continue
		}
		_, contrib := r.contribution(it, it.latestDay)
		if !contrib.IsPositive() {
			continue
		}
		if !r.admissible(it, it.latestDay) {
			r.bufferBound = true
			continue
		}
		r.move(it, it.latestDay)
	}
}

// repairBuffer delays payables scheduled at or before the first breach day
// until the buffer holds or no move helps. Payables without a captured
// discount go first, then higher counterparty risk, larger amounts, id.
// Each payable can reach its cap only once, so the loop is bounded.
func (r *run) repairBuffer() {
	if r.pol.MaxDelayDays == 0 {
		return
	}

	for {
		breachDay, _, breached := r.ledger.FirstBelow(r.pol.MinCashBuffer)
		if !breached {
			return
		}

		var candidates []*item
		for _, it := range r.items {
			if it.ob.Direction != domain.DirectionPayable {
				continue
			}
			if it.settleDay > breachDay || it.settleDay >= it.latestDay {
				continue
			}
			candidates = append(candidates, it)
		}
		if len(candidates) == 0 {
			return
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return rankRepair(candidates[i], candidates[j])
		})

		moved := false
		for _, it := range candidates {
			if r.improvesBreach(it, it.latestDay) {
				r.move(it, it.latestDay)
				r.bufferBound = true
				moved = true
				break
			}
		}
		if !moved {
			return
		}
	}
}

func rankRepair(a, b *item) bool {
	aPlain := a.settleDay > a.discountDay // not sitting on a captured discount
	bPlain := b.settleDay > b.discountDay
	if aPlain != bPlain {
		return aPlain
	}
	if a.risk != b.risk {
		return a.risk > b.risk
	}
	if c := a.ob.Amount.Cmp(b.ob.Amount); c != 0 {
		return c > 0
	}
	return a.ob.ID < b.ob.ID
}

// improvesBreach reports whether the move pushes the first breach later or
// shrinks it on the same day
func (r *run) improvesBreach(it *item, day int) bool {
	curDay, curBal, breached := r.ledger.FirstBelow(r.pol.MinCashBuffer)
	if !breached {
		return false
	}

	trial := r.ledger.Clone()
	trial.Add(it.settleDay, it.flowOn(it.settleDay).Neg())
	trial.Add(day, it.flowOn(day))

	newDay, newBal, stillBreached := trial.FirstBelow(r.pol.MinCashBuffer)
	if !stillBreached {
		return true
	}
	if newDay != curDay {
		return newDay > curDay
	}
	return newBal.GreaterThan(curBal)
}

// result assembles the OptimizationResult from the final assignment
func (r *run) result() *domain.OptimizationResult {
	sort.SliceStable(r.items, func(i, j int) bool {
		if r.items[i].settleDay != r.items[j].settleDay {
			return r.items[i].settleDay < r.items[j].settleDay
		}
		return r.items[i].ob.ID < r.items[j].ob.ID
	})

	objective := decimal.Zero
	decisions := make([]domain.PaymentDecision, 0, len(r.items))
	for _, it := range r.items {
		impact, contrib := r.contribution(it, it.settleDay)
		objective = objective.Add(contrib)
		decisions = append(decisions, domain.PaymentDecision{
			ObligationID:          it.ob.ID,
			CounterpartyID:        it.ob.CounterpartyID,
			CounterpartyRisk:      it.risk,
			Direction:             it.ob.Direction,
			Action:                action(it),
			Amount:                it.amountOn(it.settleDay),
			SettleOn:              r.snap.AsOf().AddDate(0, 0, it.settleDay),
			DueDate:               it.ob.DueDate,
			DiscountImpact:        impact,
			ObjectiveContribution: contrib,
		})
	}

	result := &domain.OptimizationResult{
		ID:             uuid.New(),
		SnapshotID:     r.snap.ID(),
		AsOf:           r.snap.AsOf(),
		Decisions:      decisions,
		ObjectiveValue: objective,
		Feasible:       true,
	}

	breachDay, breachBal, breached := r.ledger.FirstBelow(r.pol.MinCashBuffer)
	if breached {
		result.Feasible = false
		result.Shortfall = &domain.Shortfall{
			Day:    r.snap.AsOf().AddDate(0, 0, breachDay),
			Amount: r.pol.MinCashBuffer.Sub(breachBal),
		}
	}
	result.Constraints = r.constraints(breached)

	return result
}

func (r *run) constraints(breached bool) []domain.ConstraintReport {
	minSlot, minBal := r.ledger.Min()
	buffer := domain.ConstraintReport{Name: "min_cash_buffer", Status: domain.ConstraintSlack}
	if breached || r.bufferBound || (minSlot >= 0 && minBal.LessThanOrEqual(r.pol.MinCashBuffer)) {
		buffer.Status = domain.ConstraintBinding
	}
	if minSlot >= 0 {
		buffer.Detail = fmt.Sprintf("minimum simulated balance %s on %s",
			minBal.StringFixed(2), r.snap.AsOf().AddDate(0, 0, minSlot).Format("2006-01-02"))
	} else {
		buffer.Detail = fmt.Sprintf("no scheduled flows; balance stays at %s", r.snap.CashBalance().StringFixed(2))
	}

	capped := 0
	for _, it := range r.items {
		if it.ob.Direction == domain.DirectionPayable && it.settleDay > it.dueDay && it.settleDay == it.latestDay {
			capped++
		}
	}
	delay := domain.ConstraintReport{Name: "max_delay_days", Status: domain.ConstraintSlack,
		Detail: "no payable delayed to the cap"}
	if r.pol.MaxDelayDays == 0 {
		delay.Detail = "payable delays disabled"
	}
	if r.pol.MaxDelayDays > 0 && capped > 0 {
		delay.Status = domain.ConstraintBinding
		delay.Detail = fmt.Sprintf("%d payable(s) pushed to due date + %d days", capped, r.pol.MaxDelayDays)
	}

	return []domain.ConstraintReport{buffer, delay}
}

// action names the move relative to the due day. Overdue items settle on
// day zero, which is immediate settlement, not on-due.
func action(it *item) domain.DecisionAction {
	switch {
	case it.settleDay > it.dueDay:
		return domain.ActionDelayWithinTerms
	case it.settleDay < it.dueDay || it.pastDue:
		if it.ob.Direction == domain.DirectionReceivable {
			return domain.ActionAccelerateCollect
		}
		return domain.ActionPayNow
	default:
		return domain.ActionPayOnDue
	}
}

// clampDay converts a date to a day index from asOf, clamping the past to today
func clampDay(asOf, t time.Time) int {
	d := domain.DaysBetween(asOf, t)
	if d < 0 {
		return 0
	}
	return d
}
