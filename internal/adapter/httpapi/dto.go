package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
)

// Wire formats: amounts travel as decimal strings, dates as 2006-01-02.
const dateLayout = "2006-01-02"

type envelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeSuccess(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{Status: "error", Message: message})
}

// writeDomainError maps the domain error taxonomy onto HTTP status codes
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateEntity):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidCounterparty),
		errors.Is(err, domain.ErrInvalidObligation),
		errors.Is(err, domain.ErrInvalidHorizon),
		errors.Is(err, domain.ErrInvalidPolicy),
		errors.Is(err, domain.ErrUnresolvedReference):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type paymentTermsDTO struct {
	NetDays      int    `json:"net_days"`
	DiscountRate string `json:"discount_rate,omitempty"`
	DiscountDays int    `json:"discount_days,omitempty"`
}

type counterpartyDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Role      string          `json:"role"`
	Terms     paymentTermsDTO `json:"terms"`
	RiskScore float64         `json:"risk_score"`
}

func toCounterpartyDTO(cp *domain.Counterparty) counterpartyDTO {
	dto := counterpartyDTO{
		ID:        cp.ID,
		Name:      cp.Name,
		Role:      string(cp.Role),
		Terms:     paymentTermsDTO{NetDays: cp.Terms.NetDays, DiscountDays: cp.Terms.DiscountDays},
		RiskScore: cp.RiskScore,
	}
	if cp.Terms.DiscountRate.IsPositive() {
		dto.Terms.DiscountRate = cp.Terms.DiscountRate.String()
	}
	return dto
}

func (d counterpartyDTO) toDomain() (*domain.Counterparty, error) {
	rate := decimal.Zero
	if d.Terms.DiscountRate != "" {
		var err error
		rate, err = decimal.NewFromString(d.Terms.DiscountRate)
		if err != nil {
			return nil, fmt.Errorf("invalid discount_rate %q", d.Terms.DiscountRate)
		}
	}
	return &domain.Counterparty{
		ID:   d.ID,
		Name: d.Name,
		Role: domain.CounterpartyRole(d.Role),
		Terms: domain.PaymentTerms{
			NetDays:      d.Terms.NetDays,
			DiscountRate: rate,
			DiscountDays: d.Terms.DiscountDays,
		},
		RiskScore: d.RiskScore,
	}, nil
}

type discountDTO struct {
	Rate string `json:"rate"`
	By   string `json:"by"`
}

type obligationDTO struct {
	ID             string       `json:"id"`
	Direction      string       `json:"direction"`
	CounterpartyID string       `json:"counterparty_id"`
	Amount         string       `json:"amount"`
	IssueDate      string       `json:"issue_date,omitempty"`
	DueDate        string       `json:"due_date"`
	Discount       *discountDTO `json:"discount,omitempty"`
	Status         string       `json:"status"`
}

func toObligationDTO(o *domain.Obligation) obligationDTO {
	dto := obligationDTO{
		ID:             o.ID,
		Direction:      string(o.Direction),
		CounterpartyID: o.CounterpartyID,
		Amount:         o.Amount.String(),
		DueDate:        o.DueDate.Format(dateLayout),
		Status:         string(o.Status),
	}
	if !o.IssueDate.IsZero() {
		dto.IssueDate = o.IssueDate.Format(dateLayout)
	}
	if o.Discount != nil {
		dto.Discount = &discountDTO{
			Rate: o.Discount.Rate.String(),
			By:   o.Discount.By.Format(dateLayout),
		}
	}
	return dto
}

type forecastBucketDTO struct {
	Index          int    `json:"index"`
	PeriodStart    string `json:"period_start"`
	PeriodEnd      string `json:"period_end"`
	Inflow         string `json:"inflow"`
	InflowCeiling  string `json:"inflow_ceiling"`
	Outflow        string `json:"outflow"`
	BalanceFloor   string `json:"balance_floor"`
	BalanceCeiling string `json:"balance_ceiling"`
}

func toForecastDTO(buckets []domain.ForecastBucket) []forecastBucketDTO {
	out := make([]forecastBucketDTO, len(buckets))
	for i, b := range buckets {
		out[i] = forecastBucketDTO{
			Index:          b.Index,
			PeriodStart:    b.PeriodStart.Format(dateLayout),
			PeriodEnd:      b.PeriodEnd.Format(dateLayout),
			Inflow:         b.Inflow.String(),
			InflowCeiling:  b.InflowCeiling.String(),
			Outflow:        b.Outflow.String(),
			BalanceFloor:   b.BalanceFloor.String(),
			BalanceCeiling: b.BalanceCeiling.String(),
		}
	}
	return out
}

type decisionDTO struct {
	ObligationID          string  `json:"obligation_id"`
	CounterpartyID        string  `json:"counterparty_id"`
	CounterpartyRisk      float64 `json:"counterparty_risk"`
	Direction             string  `json:"direction"`
	Action                string  `json:"action"`
	Amount                string  `json:"amount"`
	SettleOn              string  `json:"settle_on"`
	DueDate               string  `json:"due_date"`
	DiscountImpact        string  `json:"discount_impact"`
	ObjectiveContribution string  `json:"objective_contribution"`
}

func toDecisionDTO(d domain.PaymentDecision) decisionDTO {
	return decisionDTO{
		ObligationID:          d.ObligationID,
		CounterpartyID:        d.CounterpartyID,
		CounterpartyRisk:      d.CounterpartyRisk,
		Direction:             string(d.Direction),
		Action:                string(d.Action),
		Amount:                d.Amount.String(),
		SettleOn:              d.SettleOn.Format(dateLayout),
		DueDate:               d.DueDate.Format(dateLayout),
		DiscountImpact:        d.DiscountImpact.String(),
		ObjectiveContribution: d.ObjectiveContribution.String(),
	}
}

type constraintDTO struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type shortfallDTO struct {
	Day    string `json:"day"`
	Amount string `json:"amount"`
}

type resultDTO struct {
	ID             string          `json:"id"`
	SnapshotID     string          `json:"snapshot_id"`
	AsOf           string          `json:"as_of"`
	Decisions      []decisionDTO   `json:"decisions"`
	ObjectiveValue string          `json:"objective_value"`
	Constraints    []constraintDTO `json:"constraints"`
	Feasible       bool            `json:"feasible"`
	Shortfall      *shortfallDTO   `json:"shortfall,omitempty"`
}

func toResultDTO(r *domain.OptimizationResult) resultDTO {
	dto := resultDTO{
		ID:             r.ID.String(),
		SnapshotID:     r.SnapshotID.String(),
		AsOf:           r.AsOf.Format(dateLayout),
		Decisions:      make([]decisionDTO, len(r.Decisions)),
		ObjectiveValue: r.ObjectiveValue.String(),
		Constraints:    make([]constraintDTO, len(r.Constraints)),
		Feasible:       r.Feasible,
	}
	for i, d := range r.Decisions {
		dto.Decisions[i] = toDecisionDTO(d)
	}
	for i, c := range r.Constraints {
		dto.Constraints[i] = constraintDTO{Name: c.Name, Status: string(c.Status), Detail: c.Detail}
	}
	if r.Shortfall != nil {
		dto.Shortfall = &shortfallDTO{
			Day:    r.Shortfall.Day.Format(dateLayout),
			Amount: r.Shortfall.Amount.String(),
		}
	}
	return dto
}

type planItemDTO struct {
	Decision    decisionDTO `json:"decision"`
	Rationale   string      `json:"rationale"`
	RiskFlagged bool        `json:"risk_flagged"`
}

type planDTO struct {
	ResultID  string        `json:"result_id"`
	AsOf      string        `json:"as_of"`
	Feasible  bool          `json:"feasible"`
	Shortfall *shortfallDTO `json:"shortfall,omitempty"`
	Items     []planItemDTO `json:"items"`
}

func toPlanDTO(p *domain.Plan) planDTO {
	dto := planDTO{
		ResultID: p.ResultID.String(),
		AsOf:     p.AsOf.Format(dateLayout),
		Feasible: p.Feasible,
		Items:    make([]planItemDTO, len(p.Items)),
	}
	for i, item := range p.Items {
		dto.Items[i] = planItemDTO{
			Decision:    toDecisionDTO(item.Decision),
			Rationale:   item.Rationale,
			RiskFlagged: item.RiskFlagged,
		}
	}
	if p.Shortfall != nil {
		dto.Shortfall = &shortfallDTO{
			Day:    p.Shortfall.Day.Format(dateLayout),
			Amount: p.Shortfall.Amount.String(),
		}
	}
	return dto
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}
