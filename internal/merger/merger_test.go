package merger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/models"
)

var txnDate = time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

func expenseLine(gross string) *models.ExpenseLine {
	line := &models.ExpenseLine{
		EmployeeID:      "E1",
		ReportID:        "R1",
		TransactionDate: txnDate,
		ExpenseType:     "Meals",
		VendorName:      "Cafe",
		Account:         "620100",
		Gross:           decimal.RequireFromString(gross),
	}
	line.RecomputeNet()
	return line
}

func taxLine(tax string) *models.TaxLine {
	return &models.TaxLine{
		EmployeeID:      "E1",
		ReportID:        "R1",
		TransactionDate: txnDate,
		ExpenseType:     "Meals",
		VendorName:      "Cafe",
		Account:         "620100",
		Tax:             decimal.RequireFromString(tax),
	}
}

func TestBuildKey_TierSelection(t *testing.T) {
	tests := []struct {
		name     string
		fields   KeyFields
		expected models.KeyTier
	}{
		{
			name: "All fields present",
			fields: KeyFields{
				EmployeeID: "E1", ReportID: "R1", TransactionDate: txnDate,
				ExpenseType: "Meals", VendorName: "Cafe", Account: "620100",
			},
			expected: models.TierFull,
		},
		{
			name: "Missing vendor drops to dated",
			fields: KeyFields{
				EmployeeID: "E1", ReportID: "R1", TransactionDate: txnDate,
				ExpenseType: "Meals", Account: "620100",
			},
			expected: models.TierDated,
		},
		{
			name: "Missing expense type drops to dated",
			fields: KeyFields{
				EmployeeID: "E1", ReportID: "R1", TransactionDate: txnDate,
				VendorName: "Cafe", Account: "620100",
			},
			expected: models.TierDated,
		},
		{
			name: "Zero date drops to base",
			fields: KeyFields{
				EmployeeID: "E1", ReportID: "R1",
				ExpenseType: "Meals", VendorName: "Cafe", Account: "620100",
			},
			expected: models.TierBase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := BuildKey(tt.fields)
			if key.Tier != tt.expected {
				t.Errorf("BuildKey().Tier = %v, want %v", key.Tier, tt.expected)
			}
		})
	}
}

func TestBuildKey_NormalizesFields(t *testing.T) {
	a := BuildKey(KeyFields{
		EmployeeID: "e1", ReportID: " r1 ", TransactionDate: txnDate,
		ExpenseType: "office  supplies", VendorName: "CAFE", Account: "620100",
	})
	b := BuildKey(KeyFields{
		EmployeeID: "E1", ReportID: "R1", TransactionDate: txnDate,
		ExpenseType: "Office Supplies", VendorName: "Cafe", Account: "620100",
	})
	if a != b {
		t.Errorf("normalized keys should be equal:\n  %s\n  %s", a, b)
	}
}

func TestMerge_SumsAndOverwritesTax(t *testing.T) {
	line := expenseLine("150.00")
	line.Tax = decimal.RequireFromString("999.00") // prior estimate must be overwritten

	result := NewMerger().Merge(
		[]*models.ExpenseLine{line},
		[]*models.TaxLine{taxLine("7.50"), taxLine("7.50")},
	)

	if !line.Tax.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("Tax = %s, want 15.00", line.Tax)
	}
	if !line.Net.Equal(decimal.RequireFromString("135.00")) {
		t.Errorf("Net = %s, want 135.00", line.Net)
	}
	if result.KeysMerged != 1 {
		t.Errorf("KeysMerged = %d, want 1", result.KeysMerged)
	}
	if len(result.Unmatched) != 0 {
		t.Errorf("Unmatched = %d, want 0", len(result.Unmatched))
	}
}

func TestMerge_OrderIndependentTotals(t *testing.T) {
	forward := expenseLine("150.00")
	NewMerger().Merge(
		[]*models.ExpenseLine{forward},
		[]*models.TaxLine{taxLine("2.50"), taxLine("5.00"), taxLine("7.50")},
	)

	reversed := expenseLine("150.00")
	NewMerger().Merge(
		[]*models.ExpenseLine{reversed},
		[]*models.TaxLine{taxLine("7.50"), taxLine("5.00"), taxLine("2.50")},
	)

	if !forward.Tax.Equal(reversed.Tax) {
		t.Errorf("tax depends on input order: %s vs %s", forward.Tax, reversed.Tax)
	}
}

func TestMerge_ProportionalAllocation(t *testing.T) {
	big := expenseLine("100.00")
	small := expenseLine("50.00")

	NewMerger().Merge(
		[]*models.ExpenseLine{big, small},
		[]*models.TaxLine{taxLine("15.00")},
	)

	if !big.Tax.Equal(decimal.RequireFromString("10")) {
		t.Errorf("big line Tax = %s, want 10", big.Tax)
	}
	if !small.Tax.Equal(decimal.RequireFromString("5")) {
		t.Errorf("small line Tax = %s, want 5", small.Tax)
	}

	// Allocation weights by absolute gross, so refunds still receive share
	refund := expenseLine("-100.00")
	other := expenseLine("100.00")
	NewMerger().Merge(
		[]*models.ExpenseLine{refund, other},
		[]*models.TaxLine{taxLine("10.00")},
	)
	if !refund.Tax.Equal(decimal.RequireFromString("5")) {
		t.Errorf("refund line Tax = %s, want 5", refund.Tax)
	}
}

func TestMerge_EvenSplitOnZeroGross(t *testing.T) {
	a := expenseLine("0")
	b := expenseLine("0")

	result := NewMerger().Merge(
		[]*models.ExpenseLine{a, b},
		[]*models.TaxLine{taxLine("10.00")},
	)

	if !a.Tax.Equal(decimal.RequireFromString("5")) || !b.Tax.Equal(decimal.RequireFromString("5")) {
		t.Errorf("even split expected 5/5, got %s/%s", a.Tax, b.Tax)
	}
	if result.EvenSplits != 1 {
		t.Errorf("EvenSplits = %d, want 1", result.EvenSplits)
	}
}

func TestMerge_UnmatchedKeyBecomesDiagnostic(t *testing.T) {
	line := expenseLine("150.00")
	line.Tax = decimal.RequireFromString("3.00")
	line.RecomputeNet()

	stranger := taxLine("9.99")
	stranger.ReportID = "R-OTHER"

	result := NewMerger().Merge([]*models.ExpenseLine{line}, []*models.TaxLine{stranger})

	if len(result.Unmatched) != 1 {
		t.Fatalf("Unmatched = %d, want 1", len(result.Unmatched))
	}
	u := result.Unmatched[0]
	if !u.TaxFound.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("TaxFound = %s, want 9.99", u.TaxFound)
	}

	// The untouched expense line keeps its own tax
	if !line.Tax.Equal(decimal.RequireFromString("3.00")) {
		t.Errorf("unrelated line tax changed: %s", line.Tax)
	}
}

func TestMerge_TiersNeverCrossMatch(t *testing.T) {
	// Expense has full descriptive fields; tax line lacks them, so its key
	// lands on a lower tier and must not match
	line := expenseLine("110.00")

	tl := taxLine("10.00")
	tl.ExpenseType = ""
	tl.VendorName = ""

	result := NewMerger().Merge([]*models.ExpenseLine{line}, []*models.TaxLine{tl})

	if len(result.Unmatched) != 1 {
		t.Errorf("cross-tier match occurred: Unmatched = %d, want 1", len(result.Unmatched))
	}
	if !line.Tax.IsZero() {
		t.Errorf("line tax = %s, want untouched zero", line.Tax)
	}
}
