package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForecastBucket represents one period of the cash-flow projection.
// Inflow is the risk-weighted (conservative) expectation of receivable
// collections due in the period; InflowCeiling assumes every receivable
// collects in full. Outflow counts payables at face, since payables are
// assumed paid in full. The running balance compounds across buckets from the
// snapshot's reference balance, giving the [BalanceFloor, BalanceCeiling]
// confidence interval.
type ForecastBucket struct {
	Index          int
	PeriodStart    time.Time // inclusive
	PeriodEnd      time.Time // exclusive
	Inflow         decimal.Decimal
	InflowCeiling  decimal.Decimal
	Outflow        decimal.Decimal
	BalanceFloor   decimal.Decimal
	BalanceCeiling decimal.Decimal
}
