package normalizer

import (
	"expense-gst-reconciler/internal/models"
)

// Lookups holds the read-only vendor and employee mappings supplied to a
// batch. Keys are pre-normalized (NormalizeName for vendor names,
// NormalizeEmployeeID for employee identifiers); values are downstream
// supplier identifiers.
type Lookups struct {
	vendorByName       map[string]string
	supplierByEmployee map[string]string
}

// NewLookups builds a Lookups from raw key/identifier maps, normalizing the keys
func NewLookups(vendorByName, supplierByEmployee map[string]string) *Lookups {
	l := &Lookups{
		vendorByName:       make(map[string]string, len(vendorByName)),
		supplierByEmployee: make(map[string]string, len(supplierByEmployee)),
	}
	for name, id := range vendorByName {
		key := models.NormalizeName(name)
		if key != "" && id != "" {
			l.vendorByName[key] = id
		}
	}
	for emp, id := range supplierByEmployee {
		key := models.NormalizeEmployeeID(emp)
		if key != "" && id != "" {
			l.supplierByEmployee[key] = id
		}
	}
	return l
}

// EmptyLookups returns lookups that resolve nothing
func EmptyLookups() *Lookups {
	return NewLookups(nil, nil)
}

// ResolveVendorID resolves a supplier identifier for an employee: the
// employee-ID map wins; otherwise the vendor map is probed by
// "first last" then "last first" name order.
func (l *Lookups) ResolveVendorID(employeeID, firstName, lastName string) string {
	if key := models.NormalizeEmployeeID(employeeID); key != "" {
		if id, ok := l.supplierByEmployee[key]; ok {
			return id
		}
	}

	if id, ok := l.vendorByName[models.NormalizeName(firstName+" "+lastName)]; ok {
		return id
	}
	if id, ok := l.vendorByName[models.NormalizeName(lastName+" "+firstName)]; ok {
		return id
	}
	return ""
}

// VendorCount returns the number of usable vendor-name entries
func (l *Lookups) VendorCount() int {
	return len(l.vendorByName)
}

// EmployeeCount returns the number of usable employee entries
func (l *Lookups) EmployeeCount() int {
	return len(l.supplierByEmployee)
}
