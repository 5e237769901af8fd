package jurisdiction

import (
	"testing"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/models"
)

func TestForRegion(t *testing.T) {
	tests := []struct {
		input     string
		wantCode  string
		wantError bool
	}{
		{"AU", "AU", false},
		{"au", "AU", false},
		{" nz ", "NZ", false},
		{"US", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ForRegion(tt.input)
			if tt.wantError {
				if err == nil {
					t.Errorf("ForRegion(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForRegion(%q) unexpected error: %v", tt.input, err)
			}
			if got.Code != tt.wantCode {
				t.Errorf("ForRegion(%q).Code = %q, want %q", tt.input, got.Code, tt.wantCode)
			}
		})
	}
}

func TestConfig_Rates(t *testing.T) {
	au := AU()
	if !au.ExpectedRate.Equal(decimal.RequireFromString("0.10")) {
		t.Errorf("AU rate = %s, want 0.10", au.ExpectedRate)
	}

	nz := NZ()
	if !nz.ExpectedRate.Equal(decimal.RequireFromString("0.15")) {
		t.Errorf("NZ rate = %s, want 0.15", nz.ExpectedRate)
	}
}

func TestConfig_GrossRatio(t *testing.T) {
	// AU 10% means tax is 1/11 of gross
	au := AU()
	ratio := au.GrossRatio()

	gross := decimal.RequireFromString("110.00")
	tax := gross.Mul(ratio).Round(2)
	if !tax.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("110 * GrossRatio() = %s, want 10.00", tax)
	}

	// NZ 15% means tax is 15/115 of gross
	nz := NZ()
	tax = decimal.RequireFromString("115.00").Mul(nz.GrossRatio()).Round(2)
	if !tax.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("115 * NZ GrossRatio() = %s, want 15.00", tax)
	}
}

func TestConfig_CostCenter(t *testing.T) {
	au := AU()
	if got := au.CostCenter("8012"); got != "8012" {
		t.Errorf("AU CostCenter(8012) = %q, want passthrough", got)
	}

	nz := NZ()
	tests := []struct {
		input    string
		expected string
	}{
		{"8012", "8112"},
		{"8099", "8199"},
		{"7012", "7012"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := nz.CostCenter(tt.input); got != tt.expected {
			t.Errorf("NZ CostCenter(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestConfig_DisplayTaxCode(t *testing.T) {
	au := AU()
	if got := au.DisplayTaxCode(models.TaxCodeTaxed); got != "L1" {
		t.Errorf("AU DisplayTaxCode(L1) = %q, want L1", got)
	}

	nz := NZ()
	tests := []struct {
		code     models.TaxCode
		expected string
	}{
		{models.TaxCodeTaxed, "Q2"},
		{models.TaxCodeZeroRated, "Q0"},
		{models.TaxCodeUnresolved, ""},
	}
	for _, tt := range tests {
		if got := nz.DisplayTaxCode(tt.code); got != tt.expected {
			t.Errorf("NZ DisplayTaxCode(%q) = %q, want %q", tt.code, got, tt.expected)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{"Valid AU", func(c *Config) {}, false},
		{"Empty code", func(c *Config) { c.Code = "" }, true},
		{"Zero rate", func(c *Config) { c.ExpectedRate = decimal.Zero }, true},
		{"Rate of one", func(c *Config) { c.ExpectedRate = decimal.NewFromInt(1) }, true},
		{"Negative zero threshold", func(c *Config) { c.ZeroThreshold = decimal.NewFromInt(-1) }, true},
		{"Zero rate tolerance", func(c *Config) { c.RateTolerance = decimal.Zero }, true},
		{"Negative split slack", func(c *Config) { c.SplitSlack = decimal.NewFromInt(-1) }, true},
		{"Zero sample limit", func(c *Config) { c.RateSampleLimit = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := AU()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	original := NZ()
	clone := original.Clone()

	clone.SplitSlack = decimal.RequireFromString("0.10")
	clone.DisplayTaxCodes[models.TaxCodeTaxed] = "XX"

	if original.SplitSlack.Equal(clone.SplitSlack) {
		t.Error("mutating the clone's slack changed the original")
	}
	if original.DisplayTaxCodes[models.TaxCodeTaxed] != "Q2" {
		t.Error("mutating the clone's display map changed the original")
	}
}
