// Package reconciler wires the batch pipeline: parse, normalize, merge tax,
// classify, split, aggregate, validate rates, and build the reconciliation
// and posting outputs.
//
// The engine is flag-and-report by design. Data problems surface as dropped
// rows, CHECK flags, diagnostics and rate findings inside the result; the
// only errors Run returns are batch-fatal ones (unreadable input, invalid
// configuration, structurally broken lookup tables).
package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"expense-gst-reconciler/internal/aggregator"
	"expense-gst-reconciler/internal/classifier"
	"expense-gst-reconciler/internal/jurisdiction"
	"expense-gst-reconciler/internal/merger"
	"expense-gst-reconciler/internal/models"
	"expense-gst-reconciler/internal/normalizer"
	"expense-gst-reconciler/internal/parsers"
	"expense-gst-reconciler/internal/reporter"
	"expense-gst-reconciler/pkg/errors"
	"expense-gst-reconciler/pkg/logger"
)

// BatchConfig describes one batch run
type BatchConfig struct {
	// InputPath is the expense extract CSV
	InputPath string

	// Region selects the jurisdiction (AU, NZ)
	Region string

	// VendorLookupPath and EmployeeLookupPath are optional lookup tables;
	// empty paths disable vendor resolution
	VendorLookupPath   string
	EmployeeLookupPath string

	// Jurisdiction overrides the region table when set, for tests and
	// tuned tolerances
	Jurisdiction *jurisdiction.Config

	// Normalizer overrides the normalization defaults when set
	Normalizer *normalizer.Config

	// IncludePostingView adds the flattened posting rows to the result
	IncludePostingView bool
}

// BatchResult is the complete output of one run
type BatchResult struct {
	RunID       string
	Region      string
	StartedAt   time.Time
	CompletedAt time.Time

	// Lines is the post-split line collection feeding the ledger
	Lines []*models.ExpenseLine

	Aggregated     []*models.AggregatedLine
	Reconciliation []reporter.ReconciliationRow
	PostingView    []reporter.PostingRow
	RateReport     *aggregator.RateReport
	UnmatchedTax   []models.UnmatchedTax

	Stats map[string]int
}

// Report packages the result for rendering
func (r *BatchResult) Report() *reporter.BatchReport {
	return &reporter.BatchReport{
		RunID:          r.RunID,
		Region:         r.Region,
		GeneratedAt:    r.CompletedAt,
		Aggregated:     r.Aggregated,
		Reconciliation: r.Reconciliation,
		PostingView:    r.PostingView,
		RateReport:     r.RateReport,
		Stats:          r.Stats,
	}
}

// Engine runs expense tax reconciliation batches
type Engine struct {
	config *BatchConfig
	jur    *jurisdiction.Config
	logger logger.Logger
}

// NewEngine validates the batch configuration and builds an engine.
// Configuration problems are the first class of batch-fatal error and are
// reported before any file is touched.
func NewEngine(config *BatchConfig) (*Engine, error) {
	if config == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "batch", nil, nil)
	}
	if config.InputPath == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "input", nil, nil).
			WithSuggestion("pass the expense extract path with --input")
	}

	jur := config.Jurisdiction
	if jur == nil {
		var err error
		jur, err = jurisdiction.ForRegion(config.Region)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "region", config.Region, err)
		}
	}
	if err := jur.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "jurisdiction", jur.Code, err)
	}

	return &Engine{
		config: config,
		jur:    jur,
		logger: logger.WithComponent("engine"),
	}, nil
}

// Jurisdiction exposes the resolved jurisdiction table
func (e *Engine) Jurisdiction() *jurisdiction.Config {
	return e.jur
}

// Run executes the full pipeline for one extract. The returned error is
// always batch-fatal; every recoverable condition lands in the result.
func (e *Engine) Run(ctx context.Context) (*BatchResult, error) {
	result := &BatchResult{
		RunID:     uuid.New().String(),
		Region:    e.jur.Code,
		StartedAt: time.Now(),
		Stats:     make(map[string]int),
	}

	runLog := e.logger.WithFields(logger.Fields{
		"run_id": result.RunID,
		"region": result.Region,
		"input":  e.config.InputPath,
	})
	runLog.Info("Starting reconciliation batch")

	lookups, err := e.loadLookups()
	if err != nil {
		return nil, err
	}

	extractParser := parsers.NewExtractParser(nil)
	rows, extractStats, err := extractParser.ParseFile(ctx, e.config.InputPath)
	if err != nil {
		return nil, err
	}
	result.Stats["rows_read"] = extractStats.RowsRead
	result.Stats["rows_malformed"] = extractStats.RowsSkipped

	norm := normalizer.New(e.config.Normalizer, e.jur, lookups)
	normalized := norm.Normalize(rows)
	result.Stats["rows_filtered"] = normalized.Stats.RowsFiltered
	result.Stats["rows_dropped"] = normalized.Stats.RowsDropped
	result.Stats["expense_lines"] = normalized.Stats.ExpenseLines
	result.Stats["tax_lines"] = normalized.Stats.TaxLines
	result.Stats["coerced_fields"] = normalized.Stats.CoercedFields

	merged := merger.NewMerger().Merge(normalized.Expenses, normalized.TaxLines)
	result.UnmatchedTax = merged.Unmatched
	result.Stats["tax_keys_merged"] = merged.KeysMerged
	result.Stats["tax_keys_unmatched"] = len(merged.Unmatched)
	result.Stats["tax_even_splits"] = merged.EvenSplits

	classStats := classifier.NewClassifier(e.jur).Classify(normalized.Expenses)
	result.Stats["lines_zero_rated"] = classStats.ZeroRated
	result.Stats["lines_fully_taxed"] = classStats.FullyTaxed
	result.Stats["lines_mixed"] = classStats.MixedFlagged
	result.Stats["lines_manual_review"] = classStats.ManualReview

	lines, splitStats := classifier.NewSplitter(e.jur).Split(normalized.Expenses)
	result.Lines = lines
	result.Stats["lines_split"] = splitStats.LinesSplit
	result.Stats["lines_downgraded"] = splitStats.Downgraded

	result.Aggregated = aggregator.NewAggregator(e.jur).Aggregate(lines)
	result.Stats["ledger_lines"] = len(result.Aggregated)

	result.RateReport = aggregator.NewRateValidator(e.jur).Validate(result.Aggregated)
	result.Stats["rate_findings"] = result.RateReport.NonConforming

	result.Reconciliation = reporter.BuildReconciliation(result.Aggregated, result.UnmatchedTax)
	if e.config.IncludePostingView {
		result.PostingView = reporter.BuildPostingView(result.Aggregated)
	}

	result.CompletedAt = time.Now()

	checks := 0
	for _, row := range result.Reconciliation {
		if row.Status == reporter.StatusCheck {
			checks++
		}
	}
	result.Stats["reconciliation_checks"] = checks

	runLog.WithFields(logger.Fields{
		"ledger_lines": len(result.Aggregated),
		"checks":       checks,
		"duration":     result.CompletedAt.Sub(result.StartedAt).String(),
	}).Info("Reconciliation batch complete")

	return result, nil
}

// loadLookups reads the optional lookup tables. Missing paths are fine;
// present but structurally broken files abort the batch.
func (e *Engine) loadLookups() (*normalizer.Lookups, error) {
	var vendors, employees map[string]string

	if e.config.VendorLookupPath != "" {
		loaded, _, err := parsers.LoadVendorLookup(e.config.VendorLookupPath)
		if err != nil {
			return nil, err
		}
		vendors = loaded
	}

	if e.config.EmployeeLookupPath != "" {
		loaded, _, err := parsers.LoadEmployeeLookup(e.config.EmployeeLookupPath)
		if err != nil {
			return nil, err
		}
		employees = loaded
	}

	return normalizer.NewLookups(vendors, employees), nil
}
