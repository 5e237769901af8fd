package classifier

import (
	"testing"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/jurisdiction"
	"expense-gst-reconciler/internal/models"
)

func line(gross, tax string) *models.ExpenseLine {
	l := &models.ExpenseLine{
		EmployeeID: "E1",
		ReportID:   "R1",
		Account:    "620100",
		Gross:      decimal.RequireFromString(gross),
		Tax:        decimal.RequireFromString(tax),
	}
	l.RecomputeNet()
	return l
}

func TestClassify_AU(t *testing.T) {
	tests := []struct {
		name      string
		gross     string
		tax       string
		wantCode  models.TaxCode
		wantFlag  models.MixedFlag
	}{
		{"Full GST", "110.00", "10.00", models.TaxCodeTaxed, models.MixedNo},
		{"No tax", "100.00", "0.00", models.TaxCodeZeroRated, models.MixedNo},
		{"Tax under zero threshold", "100.00", "0.005", models.TaxCodeZeroRated, models.MixedNo},
		{"Mixed candidate", "108.00", "8.00", models.TaxCodeTaxed, models.MixedYes},
		{"Negative full GST", "-110.00", "-10.00", models.TaxCodeTaxed, models.MixedNo},
		{"Zero gross nonzero tax", "0.00", "5.00", models.TaxCodeZeroRated, models.MixedNo},
		{"Tax above the band", "100.00", "20.00", models.TaxCodeZeroRated, models.MixedNo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := line(tt.gross, tt.tax)
			NewClassifier(jurisdiction.AU()).Classify([]*models.ExpenseLine{l})

			if l.TaxCode != tt.wantCode {
				t.Errorf("TaxCode = %q, want %q", l.TaxCode, tt.wantCode)
			}
			if l.MixedFlag != tt.wantFlag {
				t.Errorf("MixedFlag = %q, want %q", l.MixedFlag, tt.wantFlag)
			}
			if !l.Net.Equal(l.Gross.Sub(l.Tax)) {
				t.Errorf("net invariant violated: net %s, gross %s, tax %s", l.Net, l.Gross, l.Tax)
			}
		})
	}
}

func TestClassify_MixedSplitDerivation(t *testing.T) {
	// 8.00 of tax at 1/11 of gross implies 88.00 taxed of the 108.00 total
	l := line("108.00", "8.00")
	NewClassifier(jurisdiction.AU()).Classify([]*models.ExpenseLine{l})

	if l.MixedFlag != models.MixedYes {
		t.Fatalf("MixedFlag = %q, want Y", l.MixedFlag)
	}
	if !l.MixedTaxable.Equal(decimal.RequireFromString("88.00")) {
		t.Errorf("MixedTaxable = %s, want 88.00", l.MixedTaxable)
	}
	if !l.MixedNontaxable.Equal(decimal.RequireFromString("20.00")) {
		t.Errorf("MixedNontaxable = %s, want 20.00", l.MixedNontaxable)
	}
	if l.Note == "" {
		t.Error("mixed line should carry an explanatory note")
	}
}

func TestClassify_NZRate(t *testing.T) {
	// 15% GST: 115 gross with 15 tax is fully taxed
	l := line("115.00", "15.00")
	NewClassifier(jurisdiction.NZ()).Classify([]*models.ExpenseLine{l})

	if l.TaxCode != models.TaxCodeTaxed || l.MixedFlag != models.MixedNo {
		t.Errorf("NZ full-rate line classified %q/%q, want L1/N", l.TaxCode, l.MixedFlag)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := NewClassifier(jurisdiction.AU())

	l := line("108.00", "8.00")
	c.Classify([]*models.ExpenseLine{l})

	code, flag := l.TaxCode, l.MixedFlag
	taxable, nontaxable := l.MixedTaxable, l.MixedNontaxable
	note := l.Note

	c.Classify([]*models.ExpenseLine{l})

	if l.TaxCode != code || l.MixedFlag != flag {
		t.Errorf("reclassification changed outcome: %q/%q -> %q/%q", code, flag, l.TaxCode, l.MixedFlag)
	}
	if !l.MixedTaxable.Equal(taxable) || !l.MixedNontaxable.Equal(nontaxable) {
		t.Errorf("reclassification changed derived split")
	}
	if l.Note != note {
		t.Errorf("reclassification duplicated the note: %q", l.Note)
	}
}

func TestClassify_ResetsDerivedState(t *testing.T) {
	c := NewClassifier(jurisdiction.AU())

	l := line("108.00", "8.00")
	c.Classify([]*models.ExpenseLine{l})
	if l.MixedFlag != models.MixedYes {
		t.Fatalf("setup: expected Y, got %q", l.MixedFlag)
	}

	// Amounts corrected upstream; reclassification must clear the old split
	l.Tax = decimal.RequireFromString("9.82") // 108/11, full rate
	c.Classify([]*models.ExpenseLine{l})

	if l.MixedFlag != models.MixedNo {
		t.Errorf("MixedFlag = %q, want N after correction", l.MixedFlag)
	}
	if !l.MixedTaxable.IsZero() || !l.MixedNontaxable.IsZero() {
		t.Errorf("stale derived split survived: %s/%s", l.MixedTaxable, l.MixedNontaxable)
	}
}

func TestClassify_Stats(t *testing.T) {
	lines := []*models.ExpenseLine{
		line("110.00", "10.00"),
		line("100.00", "0.00"),
		line("108.00", "8.00"),
	}
	stats := NewClassifier(jurisdiction.AU()).Classify(lines)

	if stats.FullyTaxed != 1 {
		t.Errorf("FullyTaxed = %d, want 1", stats.FullyTaxed)
	}
	if stats.ZeroRated != 1 {
		t.Errorf("ZeroRated = %d, want 1", stats.ZeroRated)
	}
	if stats.MixedFlagged != 1 {
		t.Errorf("MixedFlagged = %d, want 1", stats.MixedFlagged)
	}
}
