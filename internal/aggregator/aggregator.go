// Package aggregator groups split, classified expense lines into the
// aggregated ledger and validates the effective tax rates of the result.
//
// Grouping is by reporting identity plus account, tax code and mixed flag.
// This is the only stage that rounds currency values: sums are computed on
// exact decimals and rounded to cents once, so per-line rounding drift never
// compounds. Group identity follows first-seen input order, and the final
// ledger is sorted on a fixed column order so output is reproducible and
// diffable.
package aggregator

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/jurisdiction"
	"expense-gst-reconciler/internal/models"
	"expense-gst-reconciler/pkg/logger"
)

// Aggregator builds the aggregated ledger for one batch
type Aggregator struct {
	jur    *jurisdiction.Config
	logger logger.Logger
}

// NewAggregator creates an Aggregator for one jurisdiction
func NewAggregator(jur *jurisdiction.Config) *Aggregator {
	return &Aggregator{
		jur:    jur,
		logger: logger.WithComponent("aggregator"),
	}
}

// groupKey is the aggregation identity
type groupKey struct {
	employeeID     string
	reportID       string
	submitDate     string
	department     string
	vendorID       string
	displayAccount string
	taxCode        models.TaxCode
	mixedFlag      models.MixedFlag
}

// Aggregate groups the lines, sums gross and tax, and rounds to cents.
// Non-numeric carried fields (note, segment, mixed amounts, posting
// account) take the first non-empty value in input order. The result is
// sorted by vendor, report, employee, submit date, department, account and
// tax code.
func (a *Aggregator) Aggregate(lines []*models.ExpenseLine) []*models.AggregatedLine {
	groups := make(map[groupKey]*models.AggregatedLine, len(lines))
	var order []groupKey

	for _, line := range lines {
		key := groupKey{
			employeeID:     line.EmployeeID,
			reportID:       line.ReportID,
			submitDate:     models.FormatDate(line.SubmitDate),
			department:     line.Department,
			vendorID:       line.VendorID,
			displayAccount: line.DisplayAccount,
			taxCode:        line.TaxCode,
			mixedFlag:      line.MixedFlag,
		}

		agg, ok := groups[key]
		if !ok {
			agg = &models.AggregatedLine{
				EmployeeID:     line.EmployeeID,
				ReportID:       line.ReportID,
				SubmitDate:     line.SubmitDate,
				Department:     line.Department,
				VendorID:       line.VendorID,
				DisplayAccount: line.DisplayAccount,
				PostingAccount: line.PostingAccount,
				TaxCode:        line.TaxCode,
				DisplayTaxCode: a.jur.DisplayTaxCode(line.TaxCode),
				MixedFlag:      line.MixedFlag,
			}
			groups[key] = agg
			order = append(order, key)
		}

		agg.Gross = agg.Gross.Add(line.Gross)
		agg.Tax = agg.Tax.Add(line.Tax)

		if agg.Note == "" {
			agg.Note = line.Note
		}
		if agg.Segment == "" {
			agg.Segment = line.Segment
		}
		if agg.MixedTaxable.IsZero() && !line.MixedTaxable.IsZero() {
			agg.MixedTaxable = line.MixedTaxable
		}
		if agg.MixedNontaxable.IsZero() && !line.MixedNontaxable.IsZero() {
			agg.MixedNontaxable = line.MixedNontaxable
		}
	}

	result := make([]*models.AggregatedLine, 0, len(order))
	for _, key := range order {
		agg := groups[key]
		agg.Gross = agg.Gross.Round(2)
		agg.Tax = agg.Tax.Round(2)
		agg.Net = agg.Gross.Sub(agg.Tax)
		agg.PostingAmount = agg.Gross.Abs().Round(2)
		result = append(result, agg)
	}

	sortAggregated(result)

	a.logger.WithFields(logger.Fields{
		"lines_in":   len(lines),
		"groups_out": len(result),
	}).Info("Aggregated expense lines")

	return result
}

// sortAggregated fixes the ledger output order:
// vendor, report, employee, submit date, department, account, tax code
func sortAggregated(lines []*models.AggregatedLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if c := strings.Compare(a.VendorID, b.VendorID); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.ReportID, b.ReportID); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.EmployeeID, b.EmployeeID); c != 0 {
			return c < 0
		}
		if c := strings.Compare(models.FormatDate(a.SubmitDate), models.FormatDate(b.SubmitDate)); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.Department, b.Department); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.DisplayAccount, b.DisplayAccount); c != 0 {
			return c < 0
		}
		return a.TaxCode < b.TaxCode
	})
}

// SumPostingAmounts totals the posting amounts of a group of aggregated
// lines, rounded to cents
func SumPostingAmounts(lines []*models.AggregatedLine) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.PostingAmount)
	}
	return sum.Round(2)
}
