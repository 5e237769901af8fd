package merger

import (
	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/models"
	"expense-gst-reconciler/pkg/logger"
)

// Merger folds standalone tax lines into their matching expense lines
type Merger struct {
	logger logger.Logger
}

// NewMerger creates a Merger
func NewMerger() *Merger {
	return &Merger{logger: logger.WithComponent("merger")}
}

// Result summarizes one merge pass
type Result struct {
	// Unmatched holds one diagnostic per tax key that matched no expense line,
	// in first-seen input order
	Unmatched []models.UnmatchedTax

	// KeysMerged counts distinct tax keys allocated onto expense lines
	KeysMerged int

	// LinesTouched counts expense lines whose tax was overwritten
	LinesTouched int

	// EvenSplits counts keys that fell back to an even split because the
	// matched lines' absolute gross summed to zero
	EvenSplits int
}

// Merge sums the tax lines per merge key and allocates each total across the
// expense lines sharing that key, proportional to each line's absolute gross
// share. The allocation overwrites the line's prior tax estimate, and net is
// recomputed for every expense line afterwards. Keys matching no expense
// line become diagnostics; they never fail the batch.
//
// Summation per key is order-independent, so shuffled input produces the
// same totals. Exact decimal values flow out of the allocation; rounding to
// cents belongs to the aggregation stage.
func (m *Merger) Merge(expenses []*models.ExpenseLine, taxLines []*models.TaxLine) *Result {
	result := &Result{}

	// Index expense lines by key, preserving input order within a key
	index := make(map[models.MergeKey][]*models.ExpenseLine, len(expenses))
	for _, line := range expenses {
		key := ExpenseKey(line)
		index[key] = append(index[key], line)
	}

	// Sum tax per key; keyOrder fixes deterministic diagnostic order
	totals := make(map[models.MergeKey]decimal.Decimal, len(taxLines))
	var keyOrder []models.MergeKey
	for _, tl := range taxLines {
		key := TaxKey(tl)
		if _, seen := totals[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		totals[key] = totals[key].Add(tl.Tax)
	}

	for _, key := range keyOrder {
		total := totals[key]
		matched := index[key]

		if len(matched) == 0 {
			result.Unmatched = append(result.Unmatched, models.NewUnmatchedTax(key, total))
			m.logger.WithFields(logger.Fields{
				"key":       key.String(),
				"tax_found": total.String(),
			}).Warn("Tax line matched no expense line")
			continue
		}

		m.allocate(key, total, matched, result)
		result.KeysMerged++
		result.LinesTouched += len(matched)
	}

	for _, line := range expenses {
		line.RecomputeNet()
	}

	m.logger.WithFields(logger.Fields{
		"keys_merged":   result.KeysMerged,
		"lines_touched": result.LinesTouched,
		"unmatched":     len(result.Unmatched),
		"even_splits":   result.EvenSplits,
	}).Info("Merged standalone tax lines")

	return result
}

// allocate distributes a key's tax total across its matched expense lines.
// The share is proportional to |gross|; when the lines' absolute gross sums
// to zero the total is split evenly instead (a carried-over business rule,
// logged for product review).
func (m *Merger) allocate(key models.MergeKey, total decimal.Decimal, matched []*models.ExpenseLine, result *Result) {
	grossSum := decimal.Zero
	for _, line := range matched {
		grossSum = grossSum.Add(line.AbsGross())
	}

	if grossSum.IsZero() {
		share := total.Div(decimal.NewFromInt(int64(len(matched))))
		for _, line := range matched {
			line.Tax = share
		}
		result.EvenSplits++
		m.logger.WithFields(logger.Fields{
			"key":   key.String(),
			"lines": len(matched),
			"total": total.String(),
		}).Warn("Zero gross across matched lines; tax split evenly")
		return
	}

	for _, line := range matched {
		line.Tax = total.Mul(line.AbsGross()).Div(grossSum)
	}
}
