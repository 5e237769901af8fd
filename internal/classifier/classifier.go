// Package classifier assigns tax codes to expense lines and splits lines
// whose posted tax implies a blend of taxed and untaxed spend.
//
// Classification is a pure function of a line's gross and tax amounts and
// the jurisdiction's tolerance bands, so reclassifying an already-classified
// line with unchanged amounts always yields the same code and flag. Lines
// whose derived split fails sanity checks are flagged CHECK and pass through
// unsplit for manual review; nothing in this package aborts a batch.
package classifier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/jurisdiction"
	"expense-gst-reconciler/internal/models"
	"expense-gst-reconciler/pkg/logger"
)

// Classifier assigns tax codes using the jurisdiction's tolerance bands
type Classifier struct {
	jur    *jurisdiction.Config
	logger logger.Logger
}

// NewClassifier creates a Classifier for one jurisdiction
func NewClassifier(jur *jurisdiction.Config) *Classifier {
	return &Classifier{
		jur:    jur,
		logger: logger.WithComponent("classifier"),
	}
}

// Stats summarizes one classification pass
type Stats struct {
	ZeroRated      int `json:"zero_rated"`
	FullyTaxed     int `json:"fully_taxed"`
	MixedFlagged   int `json:"mixed_flagged"`
	ManualReview   int `json:"manual_review"`
	DefaultedZero  int `json:"defaulted_zero"`
}

// Classify assigns a tax code and mixed flag to every line in place.
// The decision uses |gross| and |tax| against the jurisdiction bands:
//
//	|tax| <= zero threshold                      -> L0, N
//	|tax|/|gross| within tolerance of the band   -> L1, N
//	ratio materially below the band              -> mixed candidate (split derived)
//	anything else (e.g. zero gross, nonzero tax) -> L0, N
//
// Over-taxed lines deliberately classify L0 here; the aggregate-level rate
// validator is what surfaces them for review.
func (c *Classifier) Classify(lines []*models.ExpenseLine) *Stats {
	stats := &Stats{}
	for _, line := range lines {
		c.classifyLine(line, stats)
	}

	c.logger.WithFields(logger.Fields{
		"lines":         len(lines),
		"zero_rated":    stats.ZeroRated,
		"fully_taxed":   stats.FullyTaxed,
		"mixed_flagged": stats.MixedFlagged,
		"manual_review": stats.ManualReview,
	}).Info("Classified expense lines")

	return stats
}

func (c *Classifier) classifyLine(line *models.ExpenseLine, stats *Stats) {
	absGross := line.AbsGross()
	absTax := line.AbsTax()

	// Reset derived state so reclassification is repeatable
	line.MixedTaxable = decimal.Zero
	line.MixedNontaxable = decimal.Zero

	defer line.RecomputeNet()

	if absTax.LessThanOrEqual(c.jur.ZeroThreshold) {
		line.TaxCode = models.TaxCodeZeroRated
		line.MixedFlag = models.MixedNo
		stats.ZeroRated++
		return
	}

	if absGross.LessThanOrEqual(c.jur.ZeroThreshold) {
		// Nonzero tax against zero gross has no meaningful rate
		line.TaxCode = models.TaxCodeZeroRated
		line.MixedFlag = models.MixedNo
		stats.DefaultedZero++
		return
	}

	ratio := absTax.Div(absGross)
	expected := c.jur.GrossRatio()
	tolerance := c.jur.RateTolerance

	if models.CompareWithTolerance(ratio, expected, tolerance) {
		line.TaxCode = models.TaxCodeTaxed
		line.MixedFlag = models.MixedNo
		stats.FullyTaxed++
		return
	}

	if ratio.LessThan(expected.Sub(tolerance)) {
		c.deriveMixedSplit(line, absGross, absTax, expected, stats)
		return
	}

	line.TaxCode = models.TaxCodeZeroRated
	line.MixedFlag = models.MixedNo
	stats.DefaultedZero++
}

// deriveMixedSplit computes the gross portion that would carry full tax at
// the expected ratio, and the non-taxed remainder. Sane derivations flag the
// line Y with a provisional L1 code; insane ones flag CHECK and leave the
// code unresolved.
func (c *Classifier) deriveMixedSplit(line *models.ExpenseLine, absGross, absTax, expected decimal.Decimal, stats *Stats) {
	taxable := absTax.Div(expected).Round(2)
	nontaxable := absGross.Sub(taxable).Round(2)
	slack := c.jur.SplitSlack

	sane := taxable.LessThanOrEqual(absGross.Add(slack)) &&
		nontaxable.GreaterThanOrEqual(slack.Neg())

	if !sane {
		line.TaxCode = models.TaxCodeUnresolved
		line.MixedFlag = models.MixedCheck
		appendNote(line, fmt.Sprintf("tax %s below %s rate but derived split is implausible (taxable %s, non-taxable %s)",
			absTax.StringFixed(2), c.jur.Code, taxable.StringFixed(2), nontaxable.StringFixed(2)))
		stats.ManualReview++
		return
	}

	line.TaxCode = models.TaxCodeTaxed
	line.MixedFlag = models.MixedYes
	line.MixedTaxable = taxable
	line.MixedNontaxable = nontaxable
	appendNote(line, fmt.Sprintf("mixed tax treatment: %s taxed, %s untaxed of gross %s",
		taxable.StringFixed(2), nontaxable.StringFixed(2), absGross.StringFixed(2)))
	stats.MixedFlagged++
}

// appendNote adds an explanation to the line note without duplicating it on
// reclassification
func appendNote(line *models.ExpenseLine, note string) {
	if line.Note == "" {
		line.Note = note
		return
	}
	if !strings.Contains(line.Note, note) {
		line.Note = line.Note + "; " + note
	}
}
