package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
	"github.com/finworks/capflow-backend/internal/usecase/optimizer"
	"github.com/finworks/capflow-backend/internal/usecase/planner"
)

const (
	defaultForecastPeriods = 13
	defaultPeriodDays      = 7
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"service": "capflow-engine"})
}

func (s *Server) handleCreateCounterparty(w http.ResponseWriter, r *http.Request) {
	var dto counterpartyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cp, err := dto.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.planner.CreateCounterparty(r.Context(), cp); err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toCounterpartyDTO(cp))
}

func (s *Server) handleListCounterparties(w http.ResponseWriter, r *http.Request) {
	cps, err := s.planner.Counterparties(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]counterpartyDTO, len(cps))
	for i, cp := range cps {
		out[i] = toCounterpartyDTO(cp)
	}
	writeSuccess(w, http.StatusOK, out)
}

func (s *Server) handleSetCounterpartyRisk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body struct {
		Risk float64 `json:"risk"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.planner.SetCounterpartyRisk(r.Context(), id, body.Risk); err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"id": id, "risk": body.Risk})
}

type createObligationRequest struct {
	ID                 string       `json:"id,omitempty"`
	Direction          string       `json:"direction"`
	CounterpartyID     string       `json:"counterparty_id"`
	Amount             string       `json:"amount"`
	IssueDate          string       `json:"issue_date,omitempty"`
	DueDate            string       `json:"due_date"`
	Discount           *discountDTO `json:"discount,omitempty"`
	ApplyTermsDiscount bool         `json:"apply_terms_discount,omitempty"`
}

func (s *Server) handleCreateObligation(w http.ResponseWriter, r *http.Request) {
	var req createObligationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := s.planner.CreateObligation(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toObligationDTO(o))
}

func (req createObligationRequest) toInput() (planner.CreateObligationInput, error) {
	var input planner.CreateObligationInput

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return input, err
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return input, err
	}

	var issued time.Time
	if req.IssueDate != "" {
		issued, err = parseDate(req.IssueDate)
		if err != nil {
			return input, err
		}
	}

	var discount *domain.DiscountTerms
	if req.Discount != nil {
		rate, err := decimal.NewFromString(req.Discount.Rate)
		if err != nil {
			return input, fmt.Errorf("invalid discount rate %q", req.Discount.Rate)
		}
		by, err := parseDate(req.Discount.By)
		if err != nil {
			return input, err
		}
		discount = &domain.DiscountTerms{Rate: rate, By: by}
	}

	return planner.CreateObligationInput{
		ID:                 req.ID,
		Direction:          domain.Direction(req.Direction),
		CounterpartyID:     req.CounterpartyID,
		Amount:             amount,
		IssueDate:          issued,
		DueDate:            due,
		Discount:           discount,
		ApplyTermsDiscount: req.ApplyTermsDiscount,
	}, nil
}

func (s *Server) handleListObligations(w http.ResponseWriter, r *http.Request) {
	direction := domain.Direction(r.PathValue("direction"))

	horizonDays := 0
	if raw := r.URL.Query().Get("horizon_days"); raw != "" {
		var err error
		horizonDays, err = strconv.Atoi(raw)
		if err != nil || horizonDays < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid horizon_days %q", raw))
			return
		}
	}

	obs, err := s.planner.ListObligations(r.Context(), direction, horizonDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]obligationDTO, len(obs))
	for i, o := range obs {
		out[i] = toObligationDTO(o)
	}
	writeSuccess(w, http.StatusOK, out)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	balance := s.defaultBalance
	if raw := q.Get("balance"); raw != "" {
		var err error
		balance, err = parseAmount(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	periods, ok := intQuery(w, q.Get("periods"), defaultForecastPeriods)
	if !ok {
		return
	}
	periodDays, ok := intQuery(w, q.Get("period_days"), defaultPeriodDays)
	if !ok {
		return
	}

	buckets, err := s.planner.Forecast(r.Context(), balance, time.Time{}, periods, periodDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toForecastDTO(buckets))
}

// intQuery parses an integer query parameter, writing a 400 on bad input.
// The second return is false when a response was already written.
func intQuery(w http.ResponseWriter, raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid integer %q", raw))
		return 0, false
	}
	return v, true
}

type weightingDTO struct {
	DiscountCapture float64 `json:"discount_capture"`
	LiquidityRunway float64 `json:"liquidity_runway"`
}

type policyDTO struct {
	MinCashBuffer           string        `json:"min_cash_buffer,omitempty"`
	DiscountCapturePriority *bool         `json:"discount_capture_priority,omitempty"`
	MaxDelayDays            *int          `json:"max_delay_days,omitempty"`
	ObjectiveWeighting      *weightingDTO `json:"objective_weighting,omitempty"`
}

type optimizeRequest struct {
	Balance  string     `json:"balance,omitempty"`
	AsOf     string     `json:"as_of,omitempty"`
	Scenario string     `json:"scenario,omitempty"`
	Policy   *policyDTO `json:"policy,omitempty"`
}

// resolve turns the request into concrete optimizer inputs: explicit policy
// fields override the defaults, then the scenario profile shapes the result.
func (s *Server) resolve(req optimizeRequest) (decimal.Decimal, time.Time, optimizer.Policy, error) {
	balance := s.defaultBalance
	if req.Balance != "" {
		var err error
		balance, err = parseAmount(req.Balance)
		if err != nil {
			return decimal.Decimal{}, time.Time{}, optimizer.Policy{}, err
		}
	}

	var asOf time.Time
	if req.AsOf != "" {
		var err error
		asOf, err = parseDate(req.AsOf)
		if err != nil {
			return decimal.Decimal{}, time.Time{}, optimizer.Policy{}, err
		}
	}

	pol := optimizer.DefaultPolicy()
	if req.Policy != nil {
		p := req.Policy
		if p.MinCashBuffer != "" {
			buffer, err := parseAmount(p.MinCashBuffer)
			if err != nil {
				return decimal.Decimal{}, time.Time{}, optimizer.Policy{}, err
			}
			pol.MinCashBuffer = buffer
		}
		if p.DiscountCapturePriority != nil {
			pol.DiscountCapturePriority = *p.DiscountCapturePriority
		}
		if p.MaxDelayDays != nil {
			pol.MaxDelayDays = *p.MaxDelayDays
		}
		if p.ObjectiveWeighting != nil {
			pol.Weighting = optimizer.Weighting{
				DiscountCapture: p.ObjectiveWeighting.DiscountCapture,
				LiquidityRunway: p.ObjectiveWeighting.LiquidityRunway,
			}
		}
	}

	if req.Scenario != "" {
		profile, ok := s.profiles[req.Scenario]
		if !ok {
			return decimal.Decimal{}, time.Time{}, optimizer.Policy{}, fmt.Errorf("unknown scenario %q", req.Scenario)
		}
		pol = profile.Apply(pol)
	}

	return balance, asOf, pol, nil
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOptimizeRequest(w, r)
	if !ok {
		return
	}

	balance, asOf, pol, err := s.resolve(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.planner.Optimize(r.Context(), balance, asOf, pol)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toResultDTO(result))
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOptimizeRequest(w, r)
	if !ok {
		return
	}

	balance, asOf, pol, err := s.resolve(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.planner.Optimize(r.Context(), balance, asOf, pol)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	plan, err := s.recommender.Recommend(r.Context(), result)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toPlanDTO(plan))
}

// decodeOptimizeRequest tolerates an empty body: POST /api/v1/optimize with
// no payload runs the default policy on the default balance.
func decodeOptimizeRequest(w http.ResponseWriter, r *http.Request) (optimizeRequest, bool) {
	var req optimizeRequest
	if r.Body == nil || r.ContentLength == 0 {
		return req, true
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}
