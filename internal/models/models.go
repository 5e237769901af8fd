// Package models defines the typed records that flow through the
// reconciliation pipeline.
//
// The record types are value-oriented: each pipeline stage consumes one
// collection and produces the next, and nothing here is shared across
// batches. All currency values are decimal.Decimal; rounding to cents is
// deferred to the aggregation stage so allocation and classification work on
// exact values.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TaxCode classifies a line's tax treatment
type TaxCode string

const (
	// TaxCodeUnresolved marks a line awaiting classification or manual review
	TaxCodeUnresolved TaxCode = ""
	// TaxCodeZeroRated marks a line carrying no tax (L0)
	TaxCodeZeroRated TaxCode = "L0"
	// TaxCodeTaxed marks a line carrying full standard-rate tax (L1)
	TaxCodeTaxed TaxCode = "L1"
)

// String returns the string representation of TaxCode
func (c TaxCode) String() string {
	return string(c)
}

// MixedFlag marks whether a line blends taxed and untaxed spend
type MixedFlag string

const (
	// MixedNo means the line has a single tax treatment
	MixedNo MixedFlag = "N"
	// MixedYes means the line was identified as a taxed/untaxed blend with a valid derived split
	MixedYes MixedFlag = "Y"
	// MixedCheck means the line looked mixed but its derived split failed sanity checks;
	// it passes through unsplit for manual review
	MixedCheck MixedFlag = "CHECK"
)

// String returns the string representation of MixedFlag
func (f MixedFlag) String() string {
	return string(f)
}

// RawRow is one row of a source extract: canonical string values keyed by
// source column name. Adapters materialize these before the engine runs;
// slice order is the deterministic processing order.
type RawRow map[string]string

// ExpenseLine is one posted expense (credit) line item
type ExpenseLine struct {
	EmployeeID      string    `json:"employee_id"`
	ReportID        string    `json:"report_id"`
	SubmitDate      time.Time `json:"submit_date"`
	TransactionDate time.Time `json:"transaction_date"`
	Department      string    `json:"department"`
	ExpenseType     string    `json:"expense_type"`
	VendorName      string    `json:"vendor_name"`
	VendorID        string    `json:"vendor_id"`

	// Account is the normalized source account code; DisplayAccount and
	// PostingAccount carry the FB rewrite (FBxx -> "FBXX-620120" / "620120").
	Account        string `json:"account"`
	DisplayAccount string `json:"display_account"`
	PostingAccount string `json:"posting_account"`

	Gross decimal.Decimal `json:"gross"`
	Tax   decimal.Decimal `json:"tax"`
	Net   decimal.Decimal `json:"net"`

	TaxCode   TaxCode   `json:"tax_code"`
	MixedFlag MixedFlag `json:"mixed_flag"`

	// Derived split amounts, populated only for mixed candidates
	MixedTaxable    decimal.Decimal `json:"mixed_taxable"`
	MixedNontaxable decimal.Decimal `json:"mixed_nontaxable"`

	Segment string `json:"segment,omitempty"`
	Note    string `json:"note,omitempty"`

	// CoercedFields records which source fields fell back to a default
	// during normalization, for audit
	CoercedFields []string `json:"coerced_fields,omitempty"`
}

// RecomputeNet restores the net invariant net = gross - tax
func (e *ExpenseLine) RecomputeNet() {
	e.Net = e.Gross.Sub(e.Tax)
}

// AbsGross returns the absolute gross amount
func (e *ExpenseLine) AbsGross() decimal.Decimal {
	return e.Gross.Abs()
}

// AbsTax returns the absolute tax amount
func (e *ExpenseLine) AbsTax() decimal.Decimal {
	return e.Tax.Abs()
}

// Sign returns 1 for a non-negative gross amount, -1 otherwise
func (e *ExpenseLine) Sign() decimal.Decimal {
	if e.Gross.IsNegative() {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Validate performs basic validation on the ExpenseLine
func (e *ExpenseLine) Validate() error {
	if strings.TrimSpace(e.Account) == "" {
		return fmt.Errorf("expense line account cannot be empty")
	}
	if strings.TrimSpace(e.EmployeeID) == "" {
		return fmt.Errorf("expense line employee ID cannot be empty")
	}
	return nil
}

// String returns a string representation of the ExpenseLine
func (e *ExpenseLine) String() string {
	return fmt.Sprintf("ExpenseLine{Employee: %s, Report: %s, Account: %s, Gross: %s, Tax: %s, Code: %s, Mixed: %s}",
		e.EmployeeID, e.ReportID, e.DisplayAccount, e.Gross.String(), e.Tax.String(), e.TaxCode, e.MixedFlag)
}

// TaxLine is a standalone tax-only ledger entry (debit) that must be folded
// into some expense line during merging
type TaxLine struct {
	EmployeeID      string          `json:"employee_id"`
	ReportID        string          `json:"report_id"`
	TransactionDate time.Time       `json:"transaction_date"`
	ExpenseType     string          `json:"expense_type"`
	VendorName      string          `json:"vendor_name"`
	Account         string          `json:"account"`
	Tax             decimal.Decimal `json:"tax"`
}

// String returns a string representation of the TaxLine
func (t *TaxLine) String() string {
	return fmt.Sprintf("TaxLine{Employee: %s, Report: %s, Account: %s, Tax: %s}",
		t.EmployeeID, t.ReportID, t.Account, t.Tax.String())
}

// KeyTier is the specificity tier of a merge key
type KeyTier int

const (
	// TierFull matches on employee, report, date, expense type, vendor name and account
	TierFull KeyTier = 1
	// TierDated drops expense type and vendor name
	TierDated KeyTier = 2
	// TierBase drops the transaction date as well
	TierBase KeyTier = 3
)

// String returns the string representation of KeyTier
func (t KeyTier) String() string {
	switch t {
	case TierFull:
		return "full"
	case TierDated:
		return "dated"
	case TierBase:
		return "base"
	default:
		return "unknown"
	}
}

// MergeKey associates a standalone tax line with its originating expense
// lines. Keys are comparable: two lines are mergeable iff their keys are
// identical, tier included. A full-tier key never equals a base-tier key
// with the same prefix fields.
type MergeKey struct {
	Tier        KeyTier
	EmployeeID  string
	ReportID    string
	TxnDate     string
	ExpenseType string
	VendorName  string
	Account     string
}

// String renders the key for diagnostics and operator review
func (k MergeKey) String() string {
	parts := []string{k.EmployeeID, k.ReportID}
	if k.TxnDate != "" {
		parts = append(parts, k.TxnDate)
	}
	if k.ExpenseType != "" {
		parts = append(parts, k.ExpenseType)
	}
	if k.VendorName != "" {
		parts = append(parts, k.VendorName)
	}
	parts = append(parts, k.Account)
	return fmt.Sprintf("%s[%s]", k.Tier, strings.Join(parts, "|"))
}

// AggregatedLine is one row of the aggregated ledger: the sum of all split
// and classified lines sharing the same reporting identity, account, tax
// code and mixed flag. All amounts are rounded to cents; this is the only
// place rounding is applied.
type AggregatedLine struct {
	EmployeeID     string    `json:"employee_id"`
	ReportID       string    `json:"report_id"`
	SubmitDate     time.Time `json:"submit_date"`
	Department     string    `json:"department"`
	VendorID       string    `json:"vendor_id"`
	DisplayAccount string    `json:"display_account"`
	PostingAccount string    `json:"posting_account"`

	Gross decimal.Decimal `json:"gross"`
	Tax   decimal.Decimal `json:"tax"`
	Net   decimal.Decimal `json:"net"`

	// PostingAmount is round(|gross|, 2), the unsigned value entered downstream
	PostingAmount decimal.Decimal `json:"posting_amount"`

	TaxCode        TaxCode   `json:"tax_code"`
	DisplayTaxCode string    `json:"display_tax_code"`
	MixedFlag      MixedFlag `json:"mixed_flag"`

	// First non-empty values carried through the group, in input order
	Segment         string          `json:"segment,omitempty"`
	Note            string          `json:"note,omitempty"`
	MixedTaxable    decimal.Decimal `json:"mixed_taxable"`
	MixedNontaxable decimal.Decimal `json:"mixed_nontaxable"`
}

// String returns a string representation of the AggregatedLine
func (a *AggregatedLine) String() string {
	return fmt.Sprintf("AggregatedLine{Employee: %s, Report: %s, Account: %s, Code: %s, Gross: %s, Tax: %s, Net: %s}",
		a.EmployeeID, a.ReportID, a.DisplayAccount, a.TaxCode, a.Gross.String(), a.Tax.String(), a.Net.String())
}

// UnmatchedTax records a tax-line merge key that matched no expense line.
// It is a recoverable diagnostic, not an error: the batch continues and the
// entry surfaces in the reconciliation report with status CHECK.
type UnmatchedTax struct {
	Key      MergeKey        `json:"-"`
	KeyText  string          `json:"key"`
	TaxFound decimal.Decimal `json:"tax_found"`
	Action   string          `json:"action"`
}

// NewUnmatchedTax builds the diagnostic for a dangling tax key
func NewUnmatchedTax(key MergeKey, taxFound decimal.Decimal) UnmatchedTax {
	return UnmatchedTax{
		Key:      key,
		KeyText:  key.String(),
		TaxFound: taxFound,
		Action:   "review standalone tax entry: no expense line shares this key",
	}
}
