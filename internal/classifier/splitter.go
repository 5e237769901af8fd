package classifier

import (
	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/jurisdiction"
	"expense-gst-reconciler/internal/models"
	"expense-gst-reconciler/pkg/logger"
)

// Segment labels carried by split portions and review pass-throughs
const (
	SegmentTaxed      = "L1 portion"
	SegmentNontaxed   = "L0 portion"
	SegmentUnresolved = "unresolved"
)

// Splitter replaces mixed-flagged lines with their taxed and non-taxed portions
type Splitter struct {
	jur    *jurisdiction.Config
	logger logger.Logger
}

// NewSplitter creates a Splitter for one jurisdiction
func NewSplitter(jur *jurisdiction.Config) *Splitter {
	return &Splitter{
		jur:    jur,
		logger: logger.WithComponent("splitter"),
	}
}

// SplitStats summarizes one split pass
type SplitStats struct {
	LinesSplit  int `json:"lines_split"`
	Downgraded  int `json:"downgraded_to_check"`
	PassThrough int `json:"pass_through"`
}

// Split produces the post-split line collection. Lines flagged Y with a
// derived split that conserves the original gross (within the configured
// slack) are replaced by exactly two lines sharing the original's identity
// fields; a violated conservation check downgrades the line to CHECK and
// passes it through unsplit. N and CHECK lines pass through, CHECK ones
// labelled unresolved. Input order is preserved, with split portions
// adjacent in taxed/non-taxed order.
func (s *Splitter) Split(lines []*models.ExpenseLine) ([]*models.ExpenseLine, *SplitStats) {
	stats := &SplitStats{}
	out := make([]*models.ExpenseLine, 0, len(lines))

	for _, line := range lines {
		switch line.MixedFlag {
		case models.MixedYes:
			taxed, nontaxed, ok := s.splitLine(line)
			if !ok {
				line.MixedFlag = models.MixedCheck
				line.TaxCode = models.TaxCodeUnresolved
				line.Segment = SegmentUnresolved
				appendNote(line, "derived split does not reconcile to gross; review manually")
				out = append(out, line)
				stats.Downgraded++
				continue
			}
			out = append(out, taxed, nontaxed)
			stats.LinesSplit++

		case models.MixedCheck:
			line.Segment = SegmentUnresolved
			out = append(out, line)
			stats.PassThrough++

		default:
			out = append(out, line)
			stats.PassThrough++
		}
	}

	s.logger.WithFields(logger.Fields{
		"lines_in":     len(lines),
		"lines_out":    len(out),
		"lines_split":  stats.LinesSplit,
		"downgraded":   stats.Downgraded,
	}).Info("Split mixed expense lines")

	return out, stats
}

// splitLine divides one mixed line into its taxed and non-taxed portions.
// The taxed portion's tax re-derives from the jurisdiction gross ratio (for
// AU's 10% rate that is gross/11), rounded to cents; the non-taxed portion
// carries no tax. Both portions keep the identity fields, the Y flag and the
// original note for traceability.
func (s *Splitter) splitLine(line *models.ExpenseLine) (taxed, nontaxed *models.ExpenseLine, ok bool) {
	absGross := line.AbsGross()
	derivedSum := line.MixedTaxable.Add(line.MixedNontaxable)

	if !models.CompareWithTolerance(derivedSum, absGross, s.jur.SplitSlack) {
		s.logger.WithFields(logger.Fields{
			"employee": line.EmployeeID,
			"report":   line.ReportID,
			"account":  line.DisplayAccount,
			"gross":    absGross.String(),
			"derived":  derivedSum.String(),
		}).Warn("Mixed split failed conservation check; downgrading to CHECK")
		return nil, nil, false
	}

	sign := line.Sign()

	taxed = clone(line)
	taxed.Gross = line.MixedTaxable.Mul(sign)
	taxed.Tax = line.MixedTaxable.Mul(s.jur.GrossRatio()).Round(2).Mul(sign)
	taxed.TaxCode = models.TaxCodeTaxed
	taxed.Segment = SegmentTaxed
	// Each portion carries only its own share of the derived split, so
	// downstream mixed totals sum back to the original amounts
	taxed.MixedNontaxable = decimal.Zero
	taxed.RecomputeNet()

	nontaxed = clone(line)
	nontaxed.Gross = line.MixedNontaxable.Mul(sign)
	nontaxed.Tax = decimal.Zero
	nontaxed.TaxCode = models.TaxCodeZeroRated
	nontaxed.Segment = SegmentNontaxed
	nontaxed.MixedTaxable = decimal.Zero
	nontaxed.RecomputeNet()

	return taxed, nontaxed, true
}

// clone copies a line so split portions never alias the original
func clone(line *models.ExpenseLine) *models.ExpenseLine {
	copied := *line
	if line.CoercedFields != nil {
		copied.CoercedFields = append([]string(nil), line.CoercedFields...)
	}
	return &copied
}
