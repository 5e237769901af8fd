// Package jurisdiction holds the per-batch tax configuration.
//
// Each batch runs under exactly one jurisdiction: an expected tax rate, the
// tolerance bands used for classification and rate validation, the sanity
// slack for mixed-line splits, and the jurisdiction-specific cost-center and
// display-code rewrites. The configuration is an explicit injected value;
// there is no process-wide region table.
//
// Two jurisdictions are encoded:
//   - AU: 10% GST, tax codes displayed as-is
//   - NZ: 15% GST, cost centers 80xx posted as 81xx, L1/L0 displayed as Q2/Q0
//
// Example usage:
//
//	cfg, err := jurisdiction.ForRegion("NZ")
//	cfg.SplitSlack = decimal.RequireFromString("0.10") // policy override
//	engine := reconciler.NewEngine(cfg, nil)
package jurisdiction

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/models"
)

// CostCenterTransform rewrites a department/cost-center code for posting
type CostCenterTransform func(string) string

// Config holds the tax rules for one jurisdiction. All classification and
// validation tolerances live here so a batch can override business-policy
// values without code changes.
type Config struct {
	// Code identifies the jurisdiction ("AU", "NZ")
	Code string `json:"code"`

	// ExpectedRate is the statutory tax rate on the net amount (0.10 = 10%)
	ExpectedRate decimal.Decimal `json:"expected_rate"`

	// ZeroThreshold is the amount at or below which tax is treated as exactly zero
	ZeroThreshold decimal.Decimal `json:"zero_threshold"`

	// RateTolerance is the permitted deviation of an observed rate from the expected rate
	RateTolerance decimal.Decimal `json:"rate_tolerance"`

	// SplitSlack is the sanity tolerance for derived mixed-split amounts.
	// The 0.05 default is a carried-over business policy, kept configurable.
	SplitSlack decimal.Decimal `json:"split_slack"`

	// RateSampleLimit bounds how many non-conforming rows the rate validator reports
	RateSampleLimit int `json:"rate_sample_limit"`

	// TransformCostCenter rewrites department codes for posting; nil means identity
	TransformCostCenter CostCenterTransform `json:"-"`

	// DisplayTaxCodes maps internal tax codes to the jurisdiction's posting codes;
	// codes without a mapping display as-is
	DisplayTaxCodes map[models.TaxCode]string `json:"display_tax_codes,omitempty"`
}

// AU returns the Australian GST configuration (10%, codes displayed as-is)
func AU() *Config {
	return &Config{
		Code:            "AU",
		ExpectedRate:    decimal.RequireFromString("0.10"),
		ZeroThreshold:   decimal.RequireFromString("0.009"),
		RateTolerance:   decimal.RequireFromString("0.005"),
		SplitSlack:      decimal.RequireFromString("0.05"),
		RateSampleLimit: 5,
	}
}

// NZ returns the New Zealand GST configuration (15%, 80xx cost centers
// posted as 81xx, Q-series display codes)
func NZ() *Config {
	return &Config{
		Code:            "NZ",
		ExpectedRate:    decimal.RequireFromString("0.15"),
		ZeroThreshold:   decimal.RequireFromString("0.009"),
		RateTolerance:   decimal.RequireFromString("0.005"),
		SplitSlack:      decimal.RequireFromString("0.05"),
		RateSampleLimit: 5,
		TransformCostCenter: func(code string) string {
			if strings.HasPrefix(code, "80") {
				return "81" + code[2:]
			}
			return code
		},
		DisplayTaxCodes: map[models.TaxCode]string{
			models.TaxCodeTaxed:     "Q2",
			models.TaxCodeZeroRated: "Q0",
		},
	}
}

// ForRegion returns the configuration for a region code
func ForRegion(code string) (*Config, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "AU":
		return AU(), nil
	case "NZ":
		return NZ(), nil
	default:
		return nil, fmt.Errorf("unknown region code '%s': supported regions are AU, NZ", code)
	}
}

// GrossRatio returns the expected tax share of the gross amount,
// rate/(1+rate). For AU's 10% this is 1/11 of gross.
func (c *Config) GrossRatio() decimal.Decimal {
	return c.ExpectedRate.Div(decimal.NewFromInt(1).Add(c.ExpectedRate))
}

// CostCenter applies the jurisdiction cost-center transform
func (c *Config) CostCenter(code string) string {
	if c.TransformCostCenter == nil {
		return code
	}
	return c.TransformCostCenter(code)
}

// DisplayTaxCode maps an internal tax code to its posting representation
func (c *Config) DisplayTaxCode(code models.TaxCode) string {
	if mapped, ok := c.DisplayTaxCodes[code]; ok {
		return mapped
	}
	return code.String()
}

// Validate checks that the configuration is usable for a batch run
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("jurisdiction configuration is required")
	}

	if strings.TrimSpace(c.Code) == "" {
		return fmt.Errorf("jurisdiction code cannot be empty")
	}

	if !c.ExpectedRate.IsPositive() || c.ExpectedRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("expected rate must be in (0, 1): %s", c.ExpectedRate)
	}

	if c.ZeroThreshold.IsNegative() {
		return fmt.Errorf("zero threshold cannot be negative: %s", c.ZeroThreshold)
	}

	if !c.RateTolerance.IsPositive() {
		return fmt.Errorf("rate tolerance must be positive: %s", c.RateTolerance)
	}

	if c.SplitSlack.IsNegative() {
		return fmt.Errorf("split slack cannot be negative: %s", c.SplitSlack)
	}

	if c.RateSampleLimit <= 0 {
		return fmt.Errorf("rate sample limit must be positive: %d", c.RateSampleLimit)
	}

	return nil
}

// Clone creates a copy of the configuration safe for per-batch overrides
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	if c.DisplayTaxCodes != nil {
		clone.DisplayTaxCodes = make(map[models.TaxCode]string, len(c.DisplayTaxCodes))
		for k, v := range c.DisplayTaxCodes {
			clone.DisplayTaxCodes[k] = v
		}
	}
	return &clone
}

// String returns a human-readable description of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Region: %s, Rate: %s, ZeroThreshold: %s, RateTolerance: %s, SplitSlack: %s}",
		c.Code, c.ExpectedRate, c.ZeroThreshold, c.RateTolerance, c.SplitSlack)
}
