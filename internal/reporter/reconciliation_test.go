package reporter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/models"
)

var reportDate = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func aggregated(employee, report, gross, tax, net string) *models.AggregatedLine {
	return &models.AggregatedLine{
		EmployeeID: employee,
		ReportID:   report,
		SubmitDate: reportDate,
		VendorID:   "V-1",
		Gross:      decimal.RequireFromString(gross),
		Tax:        decimal.RequireFromString(tax),
		Net:        decimal.RequireFromString(net),
		MixedFlag:  models.MixedNo,
	}
}

func TestBuildReconciliation_ClosedGroupIsOK(t *testing.T) {
	rows := BuildReconciliation([]*models.AggregatedLine{
		aggregated("E1", "R1", "110.00", "10.00", "100.00"),
		aggregated("E1", "R1", "55.00", "5.00", "50.00"),
	}, nil)

	if len(rows) != 1 {
		t.Fatalf("expected 1 group row, got %d", len(rows))
	}
	row := rows[0]

	if !row.Gross.Equal(decimal.RequireFromString("165.00")) {
		t.Errorf("Gross = %s, want 165.00", row.Gross)
	}
	if !row.CalculatedTax.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("CalculatedTax = %s, want 15.00", row.CalculatedTax)
	}
	if !row.Difference.IsZero() {
		t.Errorf("Difference = %s, want 0", row.Difference)
	}
	if row.Status != StatusOK {
		t.Errorf("Status = %q, want OK", row.Status)
	}
}

func TestBuildReconciliation_GapFlagsCheck(t *testing.T) {
	// Posted tax 8 against a 10 gross-to-net gap leaves a 2.00 difference
	rows := BuildReconciliation([]*models.AggregatedLine{
		aggregated("E1", "R1", "110.00", "8.00", "100.00"),
	}, nil)

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]

	if row.Status != StatusCheck {
		t.Errorf("Status = %q, want CHECK", row.Status)
	}
	if !row.Difference.Equal(decimal.RequireFromString("-2.00")) {
		t.Errorf("Difference = %s, want -2.00", row.Difference)
	}
}

func TestBuildReconciliation_SubCentGapIsOK(t *testing.T) {
	rows := BuildReconciliation([]*models.AggregatedLine{
		aggregated("E1", "R1", "110.00", "10.00", "100.00"),
	}, nil)
	if rows[0].Status != StatusOK {
		t.Errorf("Status = %q, want OK for exact closure", rows[0].Status)
	}

	rows = BuildReconciliation([]*models.AggregatedLine{
		aggregated("E1", "R1", "110.00", "10.01", "100.00"),
	}, nil)
	if rows[0].Status != StatusCheck {
		t.Errorf("Status = %q, want CHECK for a one cent gap", rows[0].Status)
	}
}

func TestBuildReconciliation_GroupsByReportIdentity(t *testing.T) {
	rows := BuildReconciliation([]*models.AggregatedLine{
		aggregated("E1", "R1", "110.00", "10.00", "100.00"),
		aggregated("E1", "R2", "55.00", "5.00", "50.00"),
		aggregated("E2", "R1", "22.00", "2.00", "20.00"),
	}, nil)

	if len(rows) != 3 {
		t.Errorf("expected 3 group rows, got %d", len(rows))
	}
}

func TestBuildReconciliation_AbsoluteTotalsForRefunds(t *testing.T) {
	rows := BuildReconciliation([]*models.AggregatedLine{
		aggregated("E1", "R1", "-110.00", "-10.00", "-100.00"),
	}, nil)

	row := rows[0]
	if !row.Gross.Equal(decimal.RequireFromString("110.00")) {
		t.Errorf("Gross = %s, want absolute 110.00", row.Gross)
	}
	if row.Status != StatusOK {
		t.Errorf("Status = %q, want OK", row.Status)
	}
}

func TestBuildReconciliation_MixedCarryThrough(t *testing.T) {
	mixed := aggregated("E1", "R1", "108.00", "8.00", "100.00")
	mixed.MixedFlag = models.MixedYes
	mixed.Note = "mixed tax treatment"
	mixed.MixedTaxable = decimal.RequireFromString("88.00")
	mixed.MixedNontaxable = decimal.RequireFromString("20.00")

	rows := BuildReconciliation([]*models.AggregatedLine{mixed}, nil)

	row := rows[0]
	if !row.HasMixed {
		t.Error("HasMixed = false, want true")
	}
	if row.MixedNote != "mixed tax treatment" {
		t.Errorf("MixedNote = %q", row.MixedNote)
	}
	if !row.MixedTaxable.Equal(decimal.RequireFromString("88.00")) {
		t.Errorf("MixedTaxable = %s, want 88.00", row.MixedTaxable)
	}
}

func TestBuildReconciliation_UnmatchedTaxAppended(t *testing.T) {
	key := models.MergeKey{Tier: models.TierBase, EmployeeID: "E9", ReportID: "R9", Account: "620100"}
	unmatched := []models.UnmatchedTax{
		models.NewUnmatchedTax(key, decimal.RequireFromString("-4.50")),
	}

	rows := BuildReconciliation([]*models.AggregatedLine{
		aggregated("E1", "R1", "110.00", "10.00", "100.00"),
	}, unmatched)

	if len(rows) != 2 {
		t.Fatalf("expected group row plus diagnostic, got %d rows", len(rows))
	}
	diag := rows[1]

	if diag.Status != StatusCheck {
		t.Errorf("diagnostic Status = %q, want CHECK", diag.Status)
	}
	if !diag.Tax.Equal(decimal.RequireFromString("4.50")) {
		t.Errorf("diagnostic Tax = %s, want absolute 4.50", diag.Tax)
	}
	if diag.UnmatchedKey != key.String() {
		t.Errorf("UnmatchedKey = %q, want %q", diag.UnmatchedKey, key.String())
	}
	if diag.Action == "" {
		t.Error("diagnostic should carry an action")
	}
}
