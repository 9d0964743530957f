package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
	"github.com/finworks/capflow-backend/internal/usecase/forecast"
	"github.com/finworks/capflow-backend/internal/usecase/optimizer"
	"github.com/finworks/capflow-backend/internal/usecase/snapshot"
)

// resultCacheTTL bounds how long an optimization result may be served from
// cache; any write to the stores changes the fingerprint anyway.
const resultCacheTTL = 5 * time.Minute

// Service orchestrates the stores and the engine core for the transports.
// Cache is optional; a nil cache disables result caching.
type Service struct {
	CounterpartyRepo domain.CounterpartyRepository
	ObligationRepo   domain.ObligationRepository
	Cache            domain.ResultCache
}

// NewService creates a new planner service
func NewService(cpRepo domain.CounterpartyRepository, obRepo domain.ObligationRepository, cache domain.ResultCache) *Service {
	return &Service{
		CounterpartyRepo: cpRepo,
		ObligationRepo:   obRepo,
		Cache:            cache,
	}
}

// BuildSnapshot loads the full counterparty set and every unsettled
// obligation and assembles a snapshot as of the given day. A zero asOf means
// today.
func (s *Service) BuildSnapshot(ctx context.Context, balance decimal.Decimal, asOf time.Time) (*domain.Snapshot, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	cps, obs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Build(cps, obs, balance, asOf)
}

// Forecast projects bucketed cash flow over the horizon
func (s *Service) Forecast(ctx context.Context, balance decimal.Decimal, asOf time.Time, horizonPeriods, periodDays int) ([]domain.ForecastBucket, error) {
	snap, err := s.BuildSnapshot(ctx, balance, asOf)
	if err != nil {
		return nil, err
	}
	return forecast.Project(snap, horizonPeriods, periodDays)
}

// Optimize builds a snapshot and runs the optimizer with read-through result
// caching. The cache key fingerprints everything the result depends on:
// asOf, balance, policy and the loaded records. Cache failures are treated
// as misses; a result is never wrong because the cache was.
func (s *Service) Optimize(ctx context.Context, balance decimal.Decimal, asOf time.Time, pol optimizer.Policy) (*domain.OptimizationResult, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	cps, obs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	key := resultKey(balance, asOf, pol, cps, obs)
	if s.Cache != nil {
		if raw, ok := s.Cache.Get(ctx, key); ok {
			var cached domain.OptimizationResult
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	snap, err := snapshot.Build(cps, obs, balance, asOf)
	if err != nil {
		return nil, err
	}
	result, err := optimizer.Optimize(snap, pol)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			_ = s.Cache.Set(ctx, key, string(raw), resultCacheTTL)
		}
	}
	return result, nil
}

// CreateObligationInput carries the fields accepted when registering an
// invoice. ID is optional and minted when absent. A nil Discount with
// ApplyTermsDiscount set derives the discount window from the
// counterparty's payment terms.
type CreateObligationInput struct {
	ID                 string
	Direction          domain.Direction
	CounterpartyID     string
	Amount             decimal.Decimal
	IssueDate          time.Time
	DueDate            time.Time
	Discount           *domain.DiscountTerms
	ApplyTermsDiscount bool
}

// CreateObligation registers a new invoice
// Logic:
//  1. Resolve the counterparty; unknown ids are rejected
//  2. Mint an id (AP-/AR- plus a uuid fragment) when none is supplied
//  3. Default the issue date from the counterparty's net terms, and the
//     discount from its terms when requested but not specified
//  4. Validate and persist; duplicate ids surface from the store
func (s *Service) CreateObligation(ctx context.Context, input CreateObligationInput) (*domain.Obligation, error) {
	cp, err := s.CounterpartyRepo.GetByID(ctx, input.CounterpartyID)
	if err != nil {
		return nil, err
	}

	id := input.ID
	if id == "" {
		prefix := "AP-"
		if input.Direction == domain.DirectionReceivable {
			prefix = "AR-"
		}
		id = prefix + uuid.New().String()[:8]
	}

	issued := input.IssueDate
	if issued.IsZero() {
		issued = input.DueDate.AddDate(0, 0, -cp.Terms.NetDays)
	}

	// Terms like "2/10 net 45" count the discount window from issue.
	discount := input.Discount
	if discount == nil && input.ApplyTermsDiscount && cp.Terms.DiscountRate.IsPositive() {
		discount = &domain.DiscountTerms{
			Rate: cp.Terms.DiscountRate,
			By:   issued.AddDate(0, 0, cp.Terms.DiscountDays),
		}
	}

	o := &domain.Obligation{
		ID:             id,
		Direction:      input.Direction,
		CounterpartyID: input.CounterpartyID,
		Amount:         input.Amount,
		IssueDate:      issued,
		DueDate:        input.DueDate,
		Discount:       discount,
		Status:         domain.StatusOpen,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if err := s.ObligationRepo.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListObligations returns obligations of one direction due within
// horizonDays of today; horizonDays <= 0 lists without a horizon cut
func (s *Service) ListObligations(ctx context.Context, direction domain.Direction, horizonDays int) ([]*domain.Obligation, error) {
	if direction != domain.DirectionPayable && direction != domain.DirectionReceivable {
		return nil, fmt.Errorf("%w: direction must be payable or receivable", domain.ErrInvalidObligation)
	}
	return s.ObligationRepo.ListByDirection(ctx, direction, time.Now(), horizonDays)
}

// Counterparties returns every registered counterparty
func (s *Service) Counterparties(ctx context.Context) ([]*domain.Counterparty, error) {
	return s.CounterpartyRepo.List(ctx, "")
}

// CreateCounterparty validates and persists a counterparty
func (s *Service) CreateCounterparty(ctx context.Context, cp *domain.Counterparty) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	return s.CounterpartyRepo.Create(ctx, cp)
}

// SetCounterpartyRisk replaces a counterparty's risk score
func (s *Service) SetCounterpartyRisk(ctx context.Context, id string, risk float64) error {
	if risk < 0 || risk > 1 {
		return fmt.Errorf("%w: risk score must be within [0,1]", domain.ErrInvalidCounterparty)
	}
	return s.CounterpartyRepo.UpdateRiskScore(ctx, id, risk)
}

func (s *Service) load(ctx context.Context) ([]domain.Counterparty, []domain.Obligation, error) {
	cpPtrs, err := s.CounterpartyRepo.List(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load counterparties: %w", err)
	}
	obPtrs, err := s.ObligationRepo.ListUnsettled(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load obligations: %w", err)
	}

	cps := make([]domain.Counterparty, len(cpPtrs))
	for i, cp := range cpPtrs {
		cps[i] = *cp
	}
	obs := make([]domain.Obligation, len(obPtrs))
	for i, o := range obPtrs {
		obs[i] = o.Clone()
	}
	return cps, obs, nil
}

// resultKey fingerprints an optimization request. Record lines are sorted so
// the key does not depend on store iteration order.
func resultKey(balance decimal.Decimal, asOf time.Time, pol optimizer.Policy, cps []domain.Counterparty, obs []domain.Obligation) string {
	lines := make([]string, 0, len(cps)+len(obs))
	for _, cp := range cps {
		lines = append(lines, fmt.Sprintf("cp|%s|%.6f", cp.ID, cp.RiskScore))
	}
	for _, o := range obs {
		line := fmt.Sprintf("ob|%s|%s|%s|%s|%s|%s",
			o.ID, o.Direction, o.CounterpartyID, o.Amount.String(),
			domain.DayOf(o.DueDate).Format("2006-01-02"), o.Status)
		if o.Discount != nil {
			line += fmt.Sprintf("|%s|%s", o.Discount.Rate.String(), domain.DayOf(o.Discount.By).Format("2006-01-02"))
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%t|%d|%.6f|%.6f\n",
		domain.DayOf(asOf).Format("2006-01-02"), balance.String(),
		pol.MinCashBuffer.String(), pol.DiscountCapturePriority, pol.MaxDelayDays,
		pol.Weighting.DiscountCapture, pol.Weighting.LiquidityRunway)
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "optimize:" + hex.EncodeToString(sum[:])
}
