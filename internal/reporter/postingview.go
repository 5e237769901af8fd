package reporter

import (
	"time"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/aggregator"
	"expense-gst-reconciler/internal/models"
)

// PostingTotalAccount marks the per-report validation total row
const PostingTotalAccount = "REPORT TOTAL"

const postingTotalText = "Report total (validation only)"

// PostingRow is one line of the flattened posting view. Group prefix
// fields (employee, vendor, report, date) are populated only on the first
// row of each group, matching the layout downstream posting expects.
type PostingRow struct {
	EmployeeID string    `json:"employee_id,omitempty"`
	VendorID   string    `json:"vendor_id,omitempty"`
	ReportID   string    `json:"report_id,omitempty"`
	SubmitDate time.Time `json:"submit_date,omitempty"`

	Account    string          `json:"account"`
	CostCenter string          `json:"cost_center"`
	Amount     decimal.Decimal `json:"amount"`
	TaxCode    string          `json:"tax_code"`
	Text       string          `json:"text,omitempty"`
}

// BuildPostingView flattens the aggregated ledger into posting rows.
// Lines are grouped by (employee, vendor, report, submit date) in ledger
// order; each group ends with a REPORT TOTAL validation row summing the
// group's posting amounts.
func BuildPostingView(aggregated []*models.AggregatedLine) []PostingRow {
	type key struct {
		employeeID string
		vendorID   string
		reportID   string
		submitDate string
	}

	groups := make(map[key][]*models.AggregatedLine)
	var order []key

	for _, line := range aggregated {
		k := key{
			employeeID: line.EmployeeID,
			vendorID:   line.VendorID,
			reportID:   line.ReportID,
			submitDate: models.FormatDate(line.SubmitDate),
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], line)
	}

	var rows []PostingRow
	for _, k := range order {
		lines := groups[k]
		for i, line := range lines {
			row := PostingRow{
				Account:    line.PostingAccount,
				CostCenter: line.Department,
				Amount:     line.PostingAmount,
				TaxCode:    line.DisplayTaxCode,
				Text:       line.Note,
			}
			if i == 0 {
				row.EmployeeID = line.EmployeeID
				row.VendorID = line.VendorID
				row.ReportID = line.ReportID
				row.SubmitDate = line.SubmitDate
			}
			rows = append(rows, row)
		}

		rows = append(rows, PostingRow{
			Account: PostingTotalAccount,
			Amount:  aggregator.SumPostingAmounts(lines),
			Text:    postingTotalText,
		})
	}

	return rows
}
