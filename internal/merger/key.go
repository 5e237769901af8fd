// Package merger associates standalone tax ledger entries with the expense
// lines they belong to.
//
// Association is exact key equality over a three-tier merge key. Tier
// selection prefers the most specific key the line's fields allow: when
// descriptive fields (expense type, vendor name) are present they take part
// in matching to avoid false positives, and when they are missing the key
// degrades gracefully down to employee/report/account. Keys never match
// across tiers.
package merger

import (
	"time"

	"expense-gst-reconciler/internal/models"
)

// KeyFields are the identity fields a merge key is built from. Expense and
// tax lines build keys from the same field set so equality is meaningful.
type KeyFields struct {
	EmployeeID      string
	ReportID        string
	TransactionDate time.Time
	ExpenseType     string
	VendorName      string
	Account         string
}

// BuildKey computes the most specific merge key the fields support:
//
//	tier 1: employee + report + date + expense type + vendor name + account
//	tier 2: employee + report + date + account (descriptive fields missing)
//	tier 3: employee + report + account (date also missing)
//
// All string fields are case- and whitespace-normalized. The zero-time
// sentinel counts as a missing date.
func BuildKey(f KeyFields) models.MergeKey {
	employee := models.NormalizeMatchField(f.EmployeeID)
	report := models.NormalizeMatchField(f.ReportID)
	account := models.NormalizeMatchField(f.Account)
	date := models.FormatDate(f.TransactionDate)
	expenseType := models.NormalizeMatchField(f.ExpenseType)
	vendor := models.NormalizeMatchField(f.VendorName)

	if date != "" && expenseType != "" && vendor != "" {
		return models.MergeKey{
			Tier:        models.TierFull,
			EmployeeID:  employee,
			ReportID:    report,
			TxnDate:     date,
			ExpenseType: expenseType,
			VendorName:  vendor,
			Account:     account,
		}
	}

	if date != "" {
		return models.MergeKey{
			Tier:       models.TierDated,
			EmployeeID: employee,
			ReportID:   report,
			TxnDate:    date,
			Account:    account,
		}
	}

	return models.MergeKey{
		Tier:       models.TierBase,
		EmployeeID: employee,
		ReportID:   report,
		Account:    account,
	}
}

// ExpenseKey builds the merge key for an expense line
func ExpenseKey(line *models.ExpenseLine) models.MergeKey {
	return BuildKey(KeyFields{
		EmployeeID:      line.EmployeeID,
		ReportID:        line.ReportID,
		TransactionDate: line.TransactionDate,
		ExpenseType:     line.ExpenseType,
		VendorName:      line.VendorName,
		Account:         line.Account,
	})
}

// TaxKey builds the merge key for a standalone tax line
func TaxKey(line *models.TaxLine) models.MergeKey {
	return BuildKey(KeyFields{
		EmployeeID:      line.EmployeeID,
		ReportID:        line.ReportID,
		TransactionDate: line.TransactionDate,
		ExpenseType:     line.ExpenseType,
		VendorName:      line.VendorName,
		Account:         line.Account,
	})
}
