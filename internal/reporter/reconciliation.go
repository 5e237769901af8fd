// Package reporter builds the operator-facing outputs of a batch run: the
// reconciliation table, the flattened posting view, and their console, JSON
// and CSV renderings.
//
// The reconciliation table recomputes per-report totals from the aggregated
// ledger and folds in the unmatched-tax diagnostics, so every item that
// needs human review appears in one place with status CHECK.
package reporter

import (
	"time"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/models"
)

// Status marks a reconciliation row as clean or needing review
type Status string

const (
	StatusOK    Status = "OK"
	StatusCheck Status = "CHECK"
)

// differenceTolerance is the closure bound: a group reconciles when the
// gap between posted and calculated tax is under one cent
var differenceTolerance = decimal.RequireFromString("0.01")

// ReconciliationRow is one line of the reconciliation table: either a
// per-report totals row or an unmatched-tax diagnostic
type ReconciliationRow struct {
	EmployeeID string    `json:"employee_id"`
	VendorID   string    `json:"vendor_id"`
	ReportID   string    `json:"report_id"`
	SubmitDate time.Time `json:"submit_date"`

	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`

	// CalculatedTax is |gross| - |net|; Difference is |tax| - CalculatedTax
	CalculatedTax decimal.Decimal `json:"calculated_tax"`
	Difference    decimal.Decimal `json:"difference"`

	Status Status `json:"status"`

	HasMixed        bool            `json:"has_mixed"`
	MixedNote       string          `json:"mixed_note,omitempty"`
	MixedTaxable    decimal.Decimal `json:"mixed_taxable"`
	MixedNontaxable decimal.Decimal `json:"mixed_nontaxable"`

	// Diagnostic fields, set only for unmatched-tax rows
	UnmatchedKey string `json:"unmatched_key,omitempty"`
	Action       string `json:"action,omitempty"`
}

// reconGroup accumulates one (employee, vendor, report, date) group
type reconGroup struct {
	row   *ReconciliationRow
	gross decimal.Decimal
	net   decimal.Decimal
	tax   decimal.Decimal
}

// BuildReconciliation recomputes totals per (employee, vendor, report,
// submit date) group of the aggregated ledger and appends one CHECK row per
// unmatched tax diagnostic. Groups appear in ledger order; diagnostics
// follow in merge order.
func BuildReconciliation(aggregated []*models.AggregatedLine, unmatched []models.UnmatchedTax) []ReconciliationRow {
	type key struct {
		employeeID string
		vendorID   string
		reportID   string
		submitDate string
	}

	groups := make(map[key]*reconGroup)
	var order []key

	for _, line := range aggregated {
		k := key{
			employeeID: line.EmployeeID,
			vendorID:   line.VendorID,
			reportID:   line.ReportID,
			submitDate: models.FormatDate(line.SubmitDate),
		}

		g, ok := groups[k]
		if !ok {
			g = &reconGroup{row: &ReconciliationRow{
				EmployeeID: line.EmployeeID,
				VendorID:   line.VendorID,
				ReportID:   line.ReportID,
				SubmitDate: line.SubmitDate,
			}}
			groups[k] = g
			order = append(order, k)
		}

		g.gross = g.gross.Add(line.Gross)
		g.net = g.net.Add(line.Net)
		g.tax = g.tax.Add(line.Tax)

		if line.MixedFlag == models.MixedYes {
			g.row.HasMixed = true
			if g.row.MixedNote == "" {
				g.row.MixedNote = line.Note
			}
			g.row.MixedTaxable = g.row.MixedTaxable.Add(line.MixedTaxable)
			g.row.MixedNontaxable = g.row.MixedNontaxable.Add(line.MixedNontaxable)
		}
	}

	rows := make([]ReconciliationRow, 0, len(order)+len(unmatched))
	for _, k := range order {
		g := groups[k]
		row := g.row
		row.Gross = g.gross.Abs().Round(2)
		row.Net = g.net.Abs().Round(2)
		row.Tax = g.tax.Abs().Round(2)
		row.CalculatedTax = row.Gross.Sub(row.Net).Round(2)
		row.Difference = row.Tax.Sub(row.CalculatedTax).Round(2)

		if row.Difference.Abs().LessThan(differenceTolerance) {
			row.Status = StatusOK
		} else {
			row.Status = StatusCheck
		}
		rows = append(rows, *row)
	}

	for _, u := range unmatched {
		rows = append(rows, ReconciliationRow{
			EmployeeID:   u.Key.EmployeeID,
			ReportID:     u.Key.ReportID,
			Tax:          u.TaxFound.Abs().Round(2),
			Status:       StatusCheck,
			UnmatchedKey: u.KeyText,
			Action:       u.Action,
		})
	}

	return rows
}
