package reporter

import (
	"testing"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/models"
)

func postingSource(report, account, amount string) *models.AggregatedLine {
	return &models.AggregatedLine{
		EmployeeID:     "E1",
		ReportID:       report,
		SubmitDate:     reportDate,
		VendorID:       "V-1",
		Department:     "8012",
		PostingAccount: account,
		DisplayTaxCode: "L1",
		PostingAmount:  decimal.RequireFromString(amount),
	}
}

func TestBuildPostingView_GroupLayout(t *testing.T) {
	rows := BuildPostingView([]*models.AggregatedLine{
		postingSource("R1", "620100", "110.00"),
		postingSource("R1", "620120", "55.00"),
	})

	// Two detail rows plus one total row
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	first, second, total := rows[0], rows[1], rows[2]

	if first.EmployeeID != "E1" || first.ReportID != "R1" {
		t.Errorf("first row prefix = %s/%s, want E1/R1", first.EmployeeID, first.ReportID)
	}
	if second.EmployeeID != "" || second.ReportID != "" {
		t.Errorf("continuation row should have empty prefix fields, got %s/%s",
			second.EmployeeID, second.ReportID)
	}

	if total.Account != PostingTotalAccount {
		t.Errorf("total row Account = %q, want %q", total.Account, PostingTotalAccount)
	}
	if !total.Amount.Equal(decimal.RequireFromString("165.00")) {
		t.Errorf("total Amount = %s, want 165.00", total.Amount)
	}
	if total.Text == "" {
		t.Error("total row should carry the validation-only text")
	}
}

func TestBuildPostingView_SeparateGroupsGetSeparateTotals(t *testing.T) {
	rows := BuildPostingView([]*models.AggregatedLine{
		postingSource("R1", "620100", "110.00"),
		postingSource("R2", "620100", "55.00"),
	})

	// Each report gets a detail row and a total row
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	totals := 0
	for _, row := range rows {
		if row.Account == PostingTotalAccount {
			totals++
		}
	}
	if totals != 2 {
		t.Errorf("expected 2 total rows, got %d", totals)
	}
}

func TestBuildPostingView_DetailFields(t *testing.T) {
	rows := BuildPostingView([]*models.AggregatedLine{
		postingSource("R1", "620120", "42.00"),
	})

	detail := rows[0]
	if detail.Account != "620120" {
		t.Errorf("Account = %q, want posting account", detail.Account)
	}
	if detail.CostCenter != "8012" {
		t.Errorf("CostCenter = %q, want department", detail.CostCenter)
	}
	if detail.TaxCode != "L1" {
		t.Errorf("TaxCode = %q, want display code", detail.TaxCode)
	}
}

func TestBuildPostingView_Empty(t *testing.T) {
	if rows := BuildPostingView(nil); len(rows) != 0 {
		t.Errorf("expected no rows for empty ledger, got %d", len(rows))
	}
}
