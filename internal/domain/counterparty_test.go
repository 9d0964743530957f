package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCounterparty_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cp      Counterparty
		wantErr bool
		errMsg  string
	}{
		{
			name: "Supplier with net-45 discount terms should pass",
			cp: Counterparty{
				ID:   "supp001",
				Name: "Acme Components",
				Role: RoleSupplier,
				Terms: PaymentTerms{
					NetDays:      45,
					DiscountRate: decimal.NewFromFloat(0.02),
					DiscountDays: 10,
				},
				RiskScore: 0.1,
			},
			wantErr: false,
		},
		{
			name: "Customer with plain net-30 terms should pass",
			cp: Counterparty{
				ID:        "cust001",
				Name:      "Globex Retail",
				Role:      RoleCustomer,
				Terms:     PaymentTerms{NetDays: 30},
				RiskScore: 0.25,
			},
			wantErr: false,
		},
		{
			name:    "Empty identifier should fail",
			cp:      Counterparty{Name: "No ID", Role: RoleCustomer},
			wantErr: true,
			errMsg:  "identifier cannot be empty",
		},
		{
			name:    "Empty name should fail",
			cp:      Counterparty{ID: "cust002", Role: RoleCustomer},
			wantErr: true,
			errMsg:  "name cannot be empty",
		},
		{
			name:    "Unknown role should fail",
			cp:      Counterparty{ID: "cust003", Name: "Bad Role", Role: CounterpartyRole("broker")},
			wantErr: true,
			errMsg:  "role must be customer or supplier",
		},
		{
			name:    "Risk score above 1 should fail",
			cp:      Counterparty{ID: "cust004", Name: "Too Risky", Role: RoleCustomer, RiskScore: 1.5},
			wantErr: true,
			errMsg:  "risk score must be within [0,1]",
		},
		{
			name:    "Negative risk score should fail",
			cp:      Counterparty{ID: "cust005", Name: "Negative Risk", Role: RoleCustomer, RiskScore: -0.1},
			wantErr: true,
			errMsg:  "risk score must be within [0,1]",
		},
		{
			name: "Negative net days should fail",
			cp: Counterparty{
				ID:    "supp002",
				Name:  "Bad Terms",
				Role:  RoleSupplier,
				Terms: PaymentTerms{NetDays: -1},
			},
			wantErr: true,
			errMsg:  "net days cannot be negative",
		},
		{
			name: "Discount rate of 100% should fail",
			cp: Counterparty{
				ID:    "supp003",
				Name:  "Free Goods",
				Role:  RoleSupplier,
				Terms: PaymentTerms{NetDays: 30, DiscountRate: decimal.NewFromInt(1)},
			},
			wantErr: true,
			errMsg:  "discount rate must be within [0,1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cp.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCounterparty)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
