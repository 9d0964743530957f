package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/config"
	"github.com/finworks/capflow-backend/internal/domain"
	"github.com/finworks/capflow-backend/internal/usecase/optimizer"
	"github.com/finworks/capflow-backend/internal/usecase/planner"
	"github.com/finworks/capflow-backend/internal/usecase/recommend"
)

const dateLayout = "2006-01-02"

// toolHandler executes tool calls against the planner and recommender.
type toolHandler struct {
	planner        *planner.Service
	recommender    *recommend.Service
	profiles       map[string]config.Profile
	defaultBalance decimal.Decimal
}

func (h *toolHandler) call(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	switch name {
	case "working_capital_optimize":
		return h.optimize(ctx, args)
	case "cash_flow_forecast":
		return h.forecast(ctx, args)
	case "schedule_recommend":
		return h.recommend(ctx, args)
	case "invoice_create":
		return h.createInvoice(ctx, args)
	case "invoices_by_type":
		return h.listInvoices(ctx, args)
	case "counterparty_set_risk":
		return h.setRisk(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// intArg reads a numeric argument; JSON numbers arrive as float64.
func intArg(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return def
}

// optimizeInputs resolves balance, as-of date and policy from tool
// arguments the same way the HTTP API does: explicit fields override the
// default policy, then the scenario profile shapes the result.
func (h *toolHandler) optimizeInputs(args map[string]interface{}) (decimal.Decimal, time.Time, optimizer.Policy, error) {
	var zero decimal.Decimal

	balance := h.defaultBalance
	if raw := stringArg(args, "balance"); raw != "" {
		var err error
		balance, err = decimal.NewFromString(raw)
		if err != nil {
			return zero, time.Time{}, optimizer.Policy{}, fmt.Errorf("invalid balance %q", raw)
		}
	}

	var asOf time.Time
	if raw := stringArg(args, "as_of"); raw != "" {
		var err error
		asOf, err = time.Parse(dateLayout, raw)
		if err != nil {
			return zero, time.Time{}, optimizer.Policy{}, fmt.Errorf("invalid as_of %q, want YYYY-MM-DD", raw)
		}
	}

	pol := optimizer.DefaultPolicy()
	if raw := stringArg(args, "min_cash_buffer"); raw != "" {
		buffer, err := decimal.NewFromString(raw)
		if err != nil {
			return zero, time.Time{}, optimizer.Policy{}, fmt.Errorf("invalid min_cash_buffer %q", raw)
		}
		pol.MinCashBuffer = buffer
	}
	if v, ok := args["max_delay_days"].(float64); ok {
		pol.MaxDelayDays = int(v)
	}
	if v, ok := args["discount_capture_priority"].(bool); ok {
		pol.DiscountCapturePriority = v
	}

	if scenario := stringArg(args, "scenario"); scenario != "" {
		profile, ok := h.profiles[scenario]
		if !ok {
			return zero, time.Time{}, optimizer.Policy{}, fmt.Errorf("unknown scenario %q", scenario)
		}
		pol = profile.Apply(pol)
	}

	return balance, asOf, pol, nil
}

func (h *toolHandler) optimize(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	balance, asOf, pol, err := h.optimizeInputs(args)
	if err != nil {
		return nil, err
	}
	return h.planner.Optimize(ctx, balance, asOf, pol)
}

func (h *toolHandler) forecast(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	balance := h.defaultBalance
	if raw := stringArg(args, "balance"); raw != "" {
		var err error
		balance, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid balance %q", raw)
		}
	}

	var asOf time.Time
	if raw := stringArg(args, "as_of"); raw != "" {
		var err error
		asOf, err = time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid as_of %q, want YYYY-MM-DD", raw)
		}
	}

	periods := intArg(args, "periods", 13)
	periodDays := intArg(args, "period_days", 7)

	buckets, err := h.planner.Forecast(ctx, balance, asOf, periods, periodDays)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"buckets": buckets,
		"count":   len(buckets),
	}, nil
}

func (h *toolHandler) recommend(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	balance, asOf, pol, err := h.optimizeInputs(args)
	if err != nil {
		return nil, err
	}
	result, err := h.planner.Optimize(ctx, balance, asOf, pol)
	if err != nil {
		return nil, err
	}
	return h.recommender.Recommend(ctx, result)
}

func (h *toolHandler) createInvoice(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	direction := stringArg(args, "direction")
	counterpartyID := stringArg(args, "counterparty_id")
	amountRaw := stringArg(args, "amount")
	dueRaw := stringArg(args, "due_date")
	if direction == "" || counterpartyID == "" || amountRaw == "" || dueRaw == "" {
		return nil, fmt.Errorf("direction, counterparty_id, amount, and due_date are required")
	}

	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", amountRaw)
	}
	due, err := time.Parse(dateLayout, dueRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid due_date %q, want YYYY-MM-DD", dueRaw)
	}

	var issued time.Time
	if raw := stringArg(args, "issue_date"); raw != "" {
		issued, err = time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid issue_date %q, want YYYY-MM-DD", raw)
		}
	}

	rateRaw := stringArg(args, "discount_rate")
	byRaw := stringArg(args, "discount_by")
	if (rateRaw == "") != (byRaw == "") {
		return nil, fmt.Errorf("discount_rate and discount_by go together")
	}
	var discount *domain.DiscountTerms
	if rateRaw != "" {
		rate, err := decimal.NewFromString(rateRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid discount_rate %q", rateRaw)
		}
		by, err := time.Parse(dateLayout, byRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid discount_by %q, want YYYY-MM-DD", byRaw)
		}
		discount = &domain.DiscountTerms{Rate: rate, By: by}
	}

	applyTerms, _ := args["apply_terms_discount"].(bool)

	o, err := h.planner.CreateObligation(ctx, planner.CreateObligationInput{
		ID:                 stringArg(args, "id"),
		Direction:          domain.Direction(direction),
		CounterpartyID:     counterpartyID,
		Amount:             amount,
		IssueDate:          issued,
		DueDate:            due,
		Discount:           discount,
		ApplyTermsDiscount: applyTerms,
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":      o.ID,
		"message": fmt.Sprintf("created %s invoice %s due %s", o.Direction, o.ID, o.DueDate.Format(dateLayout)),
	}, nil
}

func (h *toolHandler) listInvoices(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	direction := stringArg(args, "direction")
	if direction == "" {
		return nil, fmt.Errorf("direction is required")
	}
	horizonDays := intArg(args, "horizon_days", 0)

	obs, err := h.planner.ListObligations(ctx, domain.Direction(direction), horizonDays)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"invoices": obs,
		"count":    len(obs),
	}, nil
}

func (h *toolHandler) setRisk(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := stringArg(args, "id")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	risk, ok := args["risk"].(float64)
	if !ok {
		return nil, fmt.Errorf("risk is required")
	}

	if err := h.planner.SetCounterpartyRisk(ctx, id, risk); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status": "updated",
		"id":     id,
		"risk":   risk,
	}, nil
}

// toolCatalog returns the MCP tool definitions.
func toolCatalog() []toolDescriptor {
	scenarioProp := map[string]interface{}{
		"type":        "string",
		"description": "Named policy scenario: base, conservative, aggressive",
	}
	balanceProp := map[string]interface{}{
		"type":        "string",
		"description": "Opening cash balance as a decimal string (defaults to the configured balance)",
	}
	asOfProp := map[string]interface{}{
		"type":        "string",
		"description": "Valuation date, YYYY-MM-DD (defaults to today)",
	}

	return []toolDescriptor{
		{
			Name:        "working_capital_optimize",
			Description: "Compute an optimized payment and collection schedule for all open invoices",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"balance":  balanceProp,
					"as_of":    asOfProp,
					"scenario": scenarioProp,
					"min_cash_buffer": map[string]interface{}{
						"type":        "string",
						"description": "Cash floor the schedule must not breach, decimal string",
					},
					"max_delay_days": map[string]interface{}{
						"type":        "integer",
						"description": "Days a payable may slip past its due date",
					},
					"discount_capture_priority": map[string]interface{}{
						"type":        "boolean",
						"description": "Prefer capturing early-payment discounts",
					},
				},
			},
		},
		{
			Name:        "cash_flow_forecast",
			Description: "Project cash position over future periods from open invoices",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"balance": balanceProp,
					"as_of":   asOfProp,
					"periods": map[string]interface{}{
						"type":        "integer",
						"description": "Number of periods to project (default 13)",
					},
					"period_days": map[string]interface{}{
						"type":        "integer",
						"description": "Days per period (default 7)",
					},
				},
			},
		},
		{
			Name:        "schedule_recommend",
			Description: "Optimize and render an annotated, executable payment plan, scheduling the affected invoices",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"balance":  balanceProp,
					"as_of":    asOfProp,
					"scenario": scenarioProp,
					"min_cash_buffer": map[string]interface{}{
						"type":        "string",
						"description": "Cash floor the schedule must not breach, decimal string",
					},
					"max_delay_days": map[string]interface{}{
						"type":        "integer",
						"description": "Days a payable may slip past its due date",
					},
					"discount_capture_priority": map[string]interface{}{
						"type":        "boolean",
						"description": "Prefer capturing early-payment discounts",
					},
				},
			},
		},
		{
			Name:        "invoice_create",
			Description: "Register a payable or receivable invoice",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"direction": map[string]interface{}{
						"type":        "string",
						"description": "payable or receivable",
					},
					"counterparty_id": map[string]interface{}{
						"type":        "string",
						"description": "Existing counterparty id",
					},
					"amount": map[string]interface{}{
						"type":        "string",
						"description": "Face amount as a decimal string",
					},
					"due_date": map[string]interface{}{
						"type":        "string",
						"description": "Due date, YYYY-MM-DD",
					},
					"issue_date": map[string]interface{}{
						"type":        "string",
						"description": "Issue date, YYYY-MM-DD (defaults from the counterparty's net terms)",
					},
					"discount_rate": map[string]interface{}{
						"type":        "string",
						"description": "Early-settlement discount rate, decimal string",
					},
					"discount_by": map[string]interface{}{
						"type":        "string",
						"description": "Last day the discount applies, YYYY-MM-DD",
					},
					"apply_terms_discount": map[string]interface{}{
						"type":        "boolean",
						"description": "Derive the discount from the counterparty's payment terms",
					},
				},
				"required": []string{"direction", "counterparty_id", "amount", "due_date"},
			},
		},
		{
			Name:        "invoices_by_type",
			Description: "List open invoices of one direction, optionally cut to a due-date horizon",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"direction": map[string]interface{}{
						"type":        "string",
						"description": "payable or receivable",
					},
					"horizon_days": map[string]interface{}{
						"type":        "integer",
						"description": "Only invoices due within this many days (0 lists all)",
					},
				},
				"required": []string{"direction"},
			},
		},
		{
			Name:        "counterparty_set_risk",
			Description: "Replace a counterparty's payment risk score",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Counterparty id",
					},
					"risk": map[string]interface{}{
						"type":        "number",
						"description": "Risk score within [0,1]",
					},
				},
				"required": []string{"id", "risk"},
			},
		},
	}
}
