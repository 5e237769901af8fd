package aggregator

import (
	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/jurisdiction"
	"expense-gst-reconciler/internal/models"
	"expense-gst-reconciler/pkg/logger"
)

// RateFinding is one aggregated line whose implied tax rate falls outside
// the jurisdiction band
type RateFinding struct {
	EmployeeID     string          `json:"employee_id"`
	ReportID       string          `json:"report_id"`
	DisplayAccount string          `json:"display_account"`
	Gross          decimal.Decimal `json:"gross"`
	Tax            decimal.Decimal `json:"tax"`
	Net            decimal.Decimal `json:"net"`
	ImpliedRate    decimal.Decimal `json:"implied_rate"`
}

// RateReport is the diagnostic output of rate validation
type RateReport struct {
	LinesChecked  int           `json:"lines_checked"`
	NonConforming int           `json:"non_conforming"`
	// Sample holds at most the configured sample limit of offending lines,
	// in ledger order
	Sample []RateFinding `json:"sample,omitempty"`
}

// RateValidator checks aggregated lines against the expected tax rate.
// It is diagnostic only: it never mutates lines and never fails a batch.
type RateValidator struct {
	jur    *jurisdiction.Config
	logger logger.Logger
}

// NewRateValidator creates a RateValidator for one jurisdiction
func NewRateValidator(jur *jurisdiction.Config) *RateValidator {
	return &RateValidator{
		jur:    jur,
		logger: logger.WithComponent("rate_validator"),
	}
}

// Validate recomputes the implied net-basis rate |tax|/|net| for every
// non-mixed aggregated line with a meaningful net amount, and reports lines
// whose rate is neither approximately zero nor within tolerance of the
// expected rate. Mixed and CHECK lines are excluded: their rates are
// legitimately blended or already queued for review.
func (v *RateValidator) Validate(lines []*models.AggregatedLine) *RateReport {
	report := &RateReport{}

	for _, line := range lines {
		if line.MixedFlag != models.MixedNo {
			continue
		}
		report.LinesChecked++

		absTax := line.Tax.Abs()
		if absTax.LessThanOrEqual(v.jur.ZeroThreshold) {
			continue
		}

		absNet := line.Net.Abs()
		if absNet.LessThanOrEqual(v.jur.ZeroThreshold) {
			continue
		}

		rate := absTax.Div(absNet)
		if models.CompareWithTolerance(rate, v.jur.ExpectedRate, v.jur.RateTolerance) {
			continue
		}

		report.NonConforming++
		if len(report.Sample) < v.jur.RateSampleLimit {
			report.Sample = append(report.Sample, RateFinding{
				EmployeeID:     line.EmployeeID,
				ReportID:       line.ReportID,
				DisplayAccount: line.DisplayAccount,
				Gross:          line.Gross,
				Tax:            line.Tax,
				Net:            line.Net,
				ImpliedRate:    rate.Round(4),
			})
		}
	}

	if report.NonConforming > 0 {
		v.logger.WithFields(logger.Fields{
			"region":         v.jur.Code,
			"expected_rate":  v.jur.ExpectedRate.String(),
			"non_conforming": report.NonConforming,
			"sampled":        len(report.Sample),
		}).Warn("Aggregated lines outside expected tax rate band")
	}

	return report
}
