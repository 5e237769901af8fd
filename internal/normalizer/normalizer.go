// Package normalizer coerces raw extract rows into typed expense and tax
// lines.
//
// Source extracts are loosely structured: column names vary between export
// versions, numeric and date fields arrive as display text, and identity
// fields may be blank. The normalizer resolves each canonical field through
// an ordered synonym list once per batch, filters to company-paid cash
// lines, and coerces values permissively. A field that fails to parse
// defaults to zero (amounts) or the zero-time sentinel (dates) and is
// recorded on the line's CoercedFields audit list; only a missing account
// code drops a row, and nothing here aborts a batch.
package normalizer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/jurisdiction"
	"expense-gst-reconciler/internal/models"
	"expense-gst-reconciler/pkg/logger"
)

// Canonical field names resolved from source columns
const (
	FieldPayerType   = "payer_type"
	FieldPaymentCode = "payment_code"
	FieldEmployeeID  = "employee_id"
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldReportID    = "report_id"
	FieldSubmitDate  = "submit_date"
	FieldTxnDate     = "transaction_date"
	FieldDepartment  = "department"
	FieldAccount     = "account"
	FieldExpenseType = "expense_type"
	FieldVendorName  = "vendor_name"
	FieldGross       = "gross"
	FieldTax         = "tax"
	FieldNet         = "net"
	FieldDebitCredit = "debit_credit"
	FieldNote        = "note"
)

// FieldSynonyms maps each canonical field to its source-column synonyms in
// preference order. The first synonym present in the extract header wins and
// stays fixed for the whole batch.
type FieldSynonyms map[string][]string

// DefaultFieldSynonyms returns the synonym lists for the known extract formats
func DefaultFieldSynonyms() FieldSynonyms {
	return FieldSynonyms{
		FieldPayerType:   {"Journal Payer Payment Type Name", "Payer Payment Type"},
		FieldPaymentCode: {"Report Entry Payment Code Name", "Payment Code"},
		FieldEmployeeID:  {"Employee ID", "Employee Id"},
		FieldFirstName:   {"Employee First Name", "First Name"},
		FieldLastName:    {"Employee Last Name", "Last Name"},
		FieldReportID:    {"Report ID", "Report Id"},
		FieldSubmitDate:  {"Report Submit Date", "Submit Date"},
		FieldTxnDate:     {"Report Entry Transaction Date", "Transaction Date"},
		FieldDepartment:  {"Department", "Cost Center"},
		FieldAccount:     {"Journal Account Code", "Account Code"},
		FieldExpenseType: {"Expense Type Name", "Expense Type"},
		FieldVendorName:  {"Report Entry Vendor Name", "Vendor Name", "Vendor"},
		FieldGross:       {"Journal Amount", "Amount"},
		FieldTax:         {"Report Entry Total Tax Posted Amount", "Tax Posted Amount", "Tax Amount"},
		FieldNet:         {"Net Tax Amount", "Net Amount"},
		FieldDebitCredit: {"Journal Debit Or Credit", "Debit Or Credit", "DR/CR"},
		FieldNote:        {"Report Entry Description", "Description", "Comment"},
	}
}

// Config controls row filtering and field resolution
type Config struct {
	// PayerType keeps only rows with this payer (default COMPANY)
	PayerType string
	// PaymentCode keeps only rows with this payment code (default CASH)
	PaymentCode string
	// Synonyms is the source-column resolution table
	Synonyms FieldSynonyms
}

// DefaultConfig returns the normalizer defaults for company-paid cash lines
func DefaultConfig() *Config {
	return &Config{
		PayerType:   "COMPANY",
		PaymentCode: "CASH",
		Synonyms:    DefaultFieldSynonyms(),
	}
}

// Stats summarizes one normalization pass
type Stats struct {
	RowsIn          int `json:"rows_in"`
	RowsFiltered    int `json:"rows_filtered"`
	RowsDropped     int `json:"rows_dropped"`
	ExpenseLines    int `json:"expense_lines"`
	TaxLines        int `json:"tax_lines"`
	CoercedFields   int `json:"coerced_fields"`
	UnresolvedNames int `json:"unresolved_vendor_ids"`
}

// Result is the typed output of one normalization pass
type Result struct {
	Expenses []*models.ExpenseLine
	TaxLines []*models.TaxLine
	Stats    Stats
}

// Normalizer converts raw rows into typed lines for one jurisdiction
type Normalizer struct {
	config  *Config
	jur     *jurisdiction.Config
	lookups *Lookups
	logger  logger.Logger

	// resolved maps canonical field -> chosen source column for this batch
	resolved map[string]string
}

// New creates a Normalizer. A nil lookups value disables vendor resolution;
// a nil config uses the defaults.
func New(config *Config, jur *jurisdiction.Config, lookups *Lookups) *Normalizer {
	if config == nil {
		config = DefaultConfig()
	}
	if lookups == nil {
		lookups = EmptyLookups()
	}

	return &Normalizer{
		config:  config,
		jur:     jur,
		lookups: lookups,
		logger:  logger.WithComponent("normalizer"),
	}
}

// Normalize converts one extract's rows into expense and tax lines.
// Row order is preserved: the Expenses and TaxLines slices follow input order.
func (n *Normalizer) Normalize(rows []models.RawRow) *Result {
	n.resolveFields(rows)

	result := &Result{Stats: Stats{RowsIn: len(rows)}}

	for _, row := range rows {
		if !n.isCompanyCashRow(row) {
			result.Stats.RowsFiltered++
			continue
		}

		account := models.NormalizeAccount(n.value(row, FieldAccount))
		if account == "" {
			// MalformedRow: identity is unusable, drop silently
			result.Stats.RowsDropped++
			continue
		}

		if n.isTaxRow(row) {
			result.TaxLines = append(result.TaxLines, n.buildTaxLine(row, account, &result.Stats))
			result.Stats.TaxLines++
			continue
		}

		line := n.buildExpenseLine(row, account, &result.Stats)
		result.Expenses = append(result.Expenses, line)
		result.Stats.ExpenseLines++
	}

	n.logger.WithFields(logger.Fields{
		"rows_in":       result.Stats.RowsIn,
		"rows_filtered": result.Stats.RowsFiltered,
		"rows_dropped":  result.Stats.RowsDropped,
		"expense_lines": result.Stats.ExpenseLines,
		"tax_lines":     result.Stats.TaxLines,
		"coerced":       result.Stats.CoercedFields,
	}).Info("Normalized extract rows")

	return result
}

// resolveFields fixes the canonical-field -> source-column mapping for this
// batch: the first synonym present in any row's keys wins.
func (n *Normalizer) resolveFields(rows []models.RawRow) {
	present := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			present[col] = true
		}
	}

	n.resolved = make(map[string]string, len(n.config.Synonyms))
	for field, synonyms := range n.config.Synonyms {
		for _, syn := range synonyms {
			if present[syn] {
				n.resolved[field] = syn
				break
			}
		}
	}
}

func (n *Normalizer) value(row models.RawRow, field string) string {
	col, ok := n.resolved[field]
	if !ok {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func (n *Normalizer) isCompanyCashRow(row models.RawRow) bool {
	payer := strings.ToUpper(n.value(row, FieldPayerType))
	payment := strings.ToUpper(n.value(row, FieldPaymentCode))
	return payer == n.config.PayerType && payment == n.config.PaymentCode
}

// isTaxRow identifies standalone tax-only ledger entries: debit postings
// that must be folded into a matching expense (credit) line
func (n *Normalizer) isTaxRow(row models.RawRow) bool {
	dc := strings.ToUpper(n.value(row, FieldDebitCredit))
	return dc == "DR" || dc == "DEBIT"
}

func (n *Normalizer) buildExpenseLine(row models.RawRow, account string, stats *Stats) *models.ExpenseLine {
	line := &models.ExpenseLine{
		EmployeeID:  n.value(row, FieldEmployeeID),
		ReportID:    n.value(row, FieldReportID),
		Department:  n.jur.CostCenter(models.NormalizeAccount(n.value(row, FieldDepartment))),
		ExpenseType: n.value(row, FieldExpenseType),
		VendorName:  n.value(row, FieldVendorName),
		Account:     account,
		Note:        n.value(row, FieldNote),
		MixedFlag:   models.MixedNo,
	}

	line.DisplayAccount = buildDisplayAccount(account)
	line.PostingAccount = mapPostingAccount(account)

	line.SubmitDate = n.coerceDate(row, FieldSubmitDate, line, stats)
	line.TransactionDate = n.coerceDate(row, FieldTxnDate, line, stats)

	line.Gross = n.coerceAmount(row, FieldGross, line, stats)
	line.Tax = n.coerceAmount(row, FieldTax, line, stats)

	if n.value(row, FieldNet) != "" {
		line.Net = n.coerceAmount(row, FieldNet, line, stats)
	} else {
		line.RecomputeNet()
	}

	line.VendorID = n.lookups.ResolveVendorID(
		n.value(row, FieldEmployeeID),
		n.value(row, FieldFirstName),
		n.value(row, FieldLastName),
	)
	if line.VendorID == "" {
		stats.UnresolvedNames++
	}

	return line
}

func (n *Normalizer) buildTaxLine(row models.RawRow, account string, stats *Stats) *models.TaxLine {
	line := &models.TaxLine{
		EmployeeID:  n.value(row, FieldEmployeeID),
		ReportID:    n.value(row, FieldReportID),
		ExpenseType: n.value(row, FieldExpenseType),
		VendorName:  n.value(row, FieldVendorName),
		Account:     account,
	}

	if raw := n.value(row, FieldTxnDate); raw != "" {
		if t, err := models.ParseDayFirstDate(raw); err == nil {
			line.TransactionDate = t
		} else {
			stats.CoercedFields++
		}
	}

	// A standalone tax entry posts its tax as the journal amount
	if raw := n.value(row, FieldGross); raw != "" {
		if d, err := models.ParseDecimalFromString(raw); err == nil {
			line.Tax = d
		} else {
			stats.CoercedFields++
		}
	}

	return line
}

// coerceDate parses a day-first date; failure yields the zero sentinel and
// an audit entry on the line
func (n *Normalizer) coerceDate(row models.RawRow, field string, line *models.ExpenseLine, stats *Stats) time.Time {
	raw := n.value(row, field)
	if raw == "" {
		return time.Time{}
	}

	parsed, err := models.ParseDayFirstDate(raw)
	if err != nil {
		line.CoercedFields = append(line.CoercedFields, field)
		stats.CoercedFields++
		n.logger.WithFields(logger.Fields{
			"field": field,
			"value": raw,
		}).Debug("Unparsable date defaulted to unknown")
		return time.Time{}
	}
	return parsed
}

// coerceAmount parses a currency value; failure yields zero and an audit
// entry on the line
func (n *Normalizer) coerceAmount(row models.RawRow, field string, line *models.ExpenseLine, stats *Stats) decimal.Decimal {
	raw := n.value(row, field)
	if raw == "" {
		return decimal.Zero
	}

	d, err := models.ParseDecimalFromString(raw)
	if err != nil {
		line.CoercedFields = append(line.CoercedFields, field)
		stats.CoercedFields++
		n.logger.WithFields(logger.Fields{
			"field": field,
			"value": raw,
		}).Debug("Unparsable amount defaulted to zero")
		return decimal.Zero
	}
	return d
}

// fbPostingAccount is the dedicated GL account for FB-prefixed codes
const fbPostingAccount = "620120"

// buildDisplayAccount rewrites FB-prefixed codes to their compound display
// form ("FB12" -> "FB12-620120"); other codes pass through
func buildDisplayAccount(account string) string {
	upper := strings.ToUpper(account)
	if strings.HasPrefix(upper, "FB") {
		return upper + "-" + fbPostingAccount
	}
	return account
}

// mapPostingAccount maps FB-prefixed codes to the fixed posting GL account
func mapPostingAccount(account string) string {
	if strings.HasPrefix(strings.ToUpper(account), "FB") {
		return fbPostingAccount
	}
	return account
}
