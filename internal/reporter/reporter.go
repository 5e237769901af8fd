package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"expense-gst-reconciler/internal/aggregator"
	"expense-gst-reconciler/internal/models"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// BatchReport bundles every output of one batch run for rendering
type BatchReport struct {
	RunID       string    `json:"run_id"`
	Region      string    `json:"region"`
	GeneratedAt time.Time `json:"generated_at"`

	Aggregated     []*models.AggregatedLine `json:"aggregated"`
	Reconciliation []ReconciliationRow      `json:"reconciliation"`
	PostingView    []PostingRow             `json:"posting_view,omitempty"`
	RateReport     *aggregator.RateReport   `json:"rate_report,omitempty"`

	Stats map[string]int `json:"stats,omitempty"`
}

// CheckCount returns the number of reconciliation rows needing review
func (r *BatchReport) CheckCount() int {
	count := 0
	for _, row := range r.Reconciliation {
		if row.Status == StatusCheck {
			count++
		}
	}
	return count
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Section toggles
	IncludeAggregated   bool `json:"include_aggregated"`
	IncludePostingView  bool `json:"include_posting_view"`
	IncludeRateFindings bool `json:"include_rate_findings"`
	IncludeStats        bool `json:"include_stats"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		IncludeAggregated:   true,
		IncludePostingView:  false,
		IncludeRateFindings: true,
		IncludeStats:        true,
		CSVDelimiter:        ',',
		CSVHeaders:          true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.CSVDelimiter == 0 {
		return fmt.Errorf("CSV delimiter cannot be empty")
	}
	return nil
}

// ReportGenerator renders a BatchReport in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a generator, applying defaults for a nil config
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders the batch report to the provided writer
func (rg *ReportGenerator) GenerateReport(report *BatchReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("batch report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(report *BatchReport, writer io.Writer) error {
	fmt.Fprintf(writer, "EXPENSE TAX RECONCILIATION (%s)\n", report.Region)
	fmt.Fprintf(writer, "Run: %s\n", report.RunID)
	fmt.Fprintf(writer, "Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339))

	if rg.config.IncludeAggregated {
		fmt.Fprintf(writer, "=== AGGREGATED LEDGER ===\n")
		rg.printAggregated(report.Aggregated, writer)
		fmt.Fprintf(writer, "\n")
	}

	fmt.Fprintf(writer, "=== RECONCILIATION ===\n")
	rg.printReconciliation(report.Reconciliation, writer)
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeRateFindings && report.RateReport != nil && report.RateReport.NonConforming > 0 {
		fmt.Fprintf(writer, "=== RATE FINDINGS ===\n")
		rg.printRateFindings(report.RateReport, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludePostingView && len(report.PostingView) > 0 {
		fmt.Fprintf(writer, "=== POSTING VIEW ===\n")
		rg.printPostingView(report.PostingView, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeStats && len(report.Stats) > 0 {
		fmt.Fprintf(writer, "=== PROCESSING STATISTICS ===\n")
		rg.printStats(report.Stats, writer)
	}

	return nil
}

// generateJSONReport generates a structured JSON report
func (rg *ReportGenerator) generateJSONReport(report *BatchReport, writer io.Writer) error {
	filtered := *report
	if !rg.config.IncludeAggregated {
		filtered.Aggregated = nil
	}
	if !rg.config.IncludePostingView {
		filtered.PostingView = nil
	}
	if !rg.config.IncludeRateFindings {
		filtered.RateReport = nil
	}
	if !rg.config.IncludeStats {
		filtered.Stats = nil
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(&filtered)
}

// generateCSVReport writes ledger, reconciliation and posting rows as a
// single CSV stream, discriminated by the leading Type column
func (rg *ReportGenerator) generateCSVReport(report *BatchReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Type",
			"Employee",
			"Vendor",
			"Report",
			"Date",
			"Department",
			"Account",
			"Tax_Code",
			"Gross",
			"Tax",
			"Net",
			"Status",
			"Mixed",
			"Notes",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	if rg.config.IncludeAggregated {
		for _, line := range report.Aggregated {
			record := []string{
				"Ledger",
				line.EmployeeID,
				line.VendorID,
				line.ReportID,
				models.FormatDate(line.SubmitDate),
				line.Department,
				line.DisplayAccount,
				string(line.TaxCode),
				line.Gross.StringFixed(2),
				line.Tax.StringFixed(2),
				line.Net.StringFixed(2),
				"",
				string(line.MixedFlag),
				line.Note,
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write ledger record: %w", err)
			}
		}
	}

	for _, row := range report.Reconciliation {
		rowType := "Reconciliation"
		notes := row.MixedNote
		if row.UnmatchedKey != "" {
			rowType = "Unmatched Tax"
			notes = fmt.Sprintf("%s: %s", row.UnmatchedKey, row.Action)
		}
		record := []string{
			rowType,
			row.EmployeeID,
			row.VendorID,
			row.ReportID,
			models.FormatDate(row.SubmitDate),
			"",
			"",
			"",
			row.Gross.StringFixed(2),
			row.Tax.StringFixed(2),
			row.Net.StringFixed(2),
			string(row.Status),
			mixedMarker(row.HasMixed),
			notes,
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write reconciliation record: %w", err)
		}
	}

	if rg.config.IncludePostingView {
		for _, row := range report.PostingView {
			record := []string{
				"Posting",
				row.EmployeeID,
				row.VendorID,
				row.ReportID,
				models.FormatDate(row.SubmitDate),
				row.CostCenter,
				row.Account,
				row.TaxCode,
				row.Amount.StringFixed(2),
				"",
				"",
				"",
				"",
				row.Text,
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write posting record: %w", err)
			}
		}
	}

	return nil
}

// Helper methods for console output formatting

func (rg *ReportGenerator) printAggregated(lines []*models.AggregatedLine, writer io.Writer) {
	fmt.Fprintf(writer, "%-12s %-10s %-12s %-12s %-14s %-4s %-3s %12s %10s %12s\n",
		"Employee", "Vendor", "Report", "Date", "Account", "Tax", "Mix", "Gross", "Tax Amt", "Net")
	for _, line := range lines {
		fmt.Fprintf(writer, "%-12s %-10s %-12s %-12s %-14s %-4s %-3s %12s %10s %12s\n",
			line.EmployeeID,
			line.VendorID,
			line.ReportID,
			models.FormatDate(line.SubmitDate),
			line.DisplayAccount,
			line.TaxCode,
			line.MixedFlag,
			line.Gross.StringFixed(2),
			line.Tax.StringFixed(2),
			line.Net.StringFixed(2))
	}
	fmt.Fprintf(writer, "%d lines\n", len(lines))
}

func (rg *ReportGenerator) printReconciliation(rows []ReconciliationRow, writer io.Writer) {
	fmt.Fprintf(writer, "%-12s %-10s %-12s %-12s %12s %12s %10s %10s %-6s\n",
		"Employee", "Vendor", "Report", "Date", "Gross", "Net", "Tax", "Diff", "Status")
	for _, row := range rows {
		fmt.Fprintf(writer, "%-12s %-10s %-12s %-12s %12s %12s %10s %10s %-6s\n",
			row.EmployeeID,
			row.VendorID,
			row.ReportID,
			models.FormatDate(row.SubmitDate),
			row.Gross.StringFixed(2),
			row.Net.StringFixed(2),
			row.Tax.StringFixed(2),
			row.Difference.StringFixed(2),
			row.Status)
		if row.UnmatchedKey != "" {
			fmt.Fprintf(writer, "  unmatched tax %s: %s\n", row.UnmatchedKey, row.Action)
		}
	}

	checks := 0
	for _, row := range rows {
		if row.Status == StatusCheck {
			checks++
		}
	}
	fmt.Fprintf(writer, "%d rows, %d needing review\n", len(rows), checks)
}

func (rg *ReportGenerator) printRateFindings(report *aggregator.RateReport, writer io.Writer) {
	fmt.Fprintf(writer, "Checked: %d  Non-conforming: %d\n", report.LinesChecked, report.NonConforming)
	for _, f := range report.Sample {
		fmt.Fprintf(writer, "  %s / %s account %s: tax %s on net %s (implied rate %s)\n",
			f.EmployeeID, f.ReportID, f.DisplayAccount,
			f.Tax.StringFixed(2), f.Net.StringFixed(2), f.ImpliedRate.String())
	}
	if report.NonConforming > len(report.Sample) {
		fmt.Fprintf(writer, "  ... and %d more\n", report.NonConforming-len(report.Sample))
	}
}

func (rg *ReportGenerator) printPostingView(rows []PostingRow, writer io.Writer) {
	fmt.Fprintf(writer, "%-12s %-10s %-12s %-12s %-14s %-10s %12s %-4s %s\n",
		"Employee", "Vendor", "Report", "Date", "Account", "CostCtr", "Amount", "Tax", "Text")
	for _, row := range rows {
		fmt.Fprintf(writer, "%-12s %-10s %-12s %-12s %-14s %-10s %12s %-4s %s\n",
			row.EmployeeID,
			row.VendorID,
			row.ReportID,
			models.FormatDate(row.SubmitDate),
			row.Account,
			row.CostCenter,
			row.Amount.StringFixed(2),
			row.TaxCode,
			row.Text)
	}
}

func (rg *ReportGenerator) printStats(stats map[string]int, writer io.Writer) {
	for _, key := range sortedStatKeys(stats) {
		fmt.Fprintf(writer, "  %-24s %d\n", key+":", stats[key])
	}
}

func sortedStatKeys(stats map[string]int) []string {
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// UpdateConfiguration replaces the generator configuration after validation
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}
	rg.config = config
	return nil
}

func mixedMarker(mixed bool) string {
	if mixed {
		return "Y"
	}
	return ""
}
