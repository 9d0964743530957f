package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/finworks/capflow-backend/internal/usecase/optimizer"
)

// ProfileWeights mirrors optimizer.Weighting for YAML decoding
type ProfileWeights struct {
	DiscountCapture float64 `yaml:"discount_capture"`
	LiquidityRunway float64 `yaml:"liquidity_runway"`
}

// Profile adjusts a base optimizer policy for a named scenario. Only the
// fields a profile sets are applied; nil pointers leave the base value alone.
type Profile struct {
	BufferScale             float64         `yaml:"buffer_scale"`
	MaxDelayDays            *int            `yaml:"max_delay_days"`
	DiscountCapturePriority *bool           `yaml:"discount_capture_priority"`
	Weighting               *ProfileWeights `yaml:"weighting"`
}

// Apply derives a scenario policy from the base policy
func (p Profile) Apply(base optimizer.Policy) optimizer.Policy {
	out := base
	if p.BufferScale > 0 {
		out.MinCashBuffer = base.MinCashBuffer.Mul(decimal.NewFromFloat(p.BufferScale))
	}
	if p.MaxDelayDays != nil {
		out.MaxDelayDays = *p.MaxDelayDays
	}
	if p.DiscountCapturePriority != nil {
		out.DiscountCapturePriority = *p.DiscountCapturePriority
	}
	if p.Weighting != nil {
		out.Weighting = optimizer.Weighting{
			DiscountCapture: p.Weighting.DiscountCapture,
			LiquidityRunway: p.Weighting.LiquidityRunway,
		}
	}
	return out
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

// BuiltinProfiles returns the default scenario set: "conservative" raises the
// buffer half again and weighs liquidity over discounts; "aggressive" runs a
// thinner buffer, allows longer payable delays and chases discounts.
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"base": {
			BufferScale: 1,
		},
		"conservative": {
			BufferScale:             1.5,
			MaxDelayDays:            intPtr(0),
			DiscountCapturePriority: boolPtr(false),
			Weighting:               &ProfileWeights{DiscountCapture: 1, LiquidityRunway: 3},
		},
		"aggressive": {
			BufferScale:             0.7,
			MaxDelayDays:            intPtr(15),
			DiscountCapturePriority: boolPtr(true),
			Weighting:               &ProfileWeights{DiscountCapture: 3, LiquidityRunway: 1},
		},
	}
}

// LoadProfiles reads a scenario profile map from a YAML file. An empty path
// returns the built-in set.
func LoadProfiles(path string) (map[string]Profile, error) {
	if path == "" {
		return BuiltinProfiles(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario profiles %q: %w", path, err)
	}

	var profiles map[string]Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse scenario profiles %q: %w", path, err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("scenario profiles %q define no scenarios", path)
	}
	return profiles, nil
}
