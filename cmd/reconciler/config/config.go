// Package config assembles typed engine configuration from CLI flag values.
package config

import (
	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/jurisdiction"
	"expense-gst-reconciler/internal/reconciler"
	"expense-gst-reconciler/internal/reporter"
)

// CreateJurisdiction resolves the region table and applies CLI tolerance
// overrides. A value of -1 means the flag was not set and the region default
// stands.
func CreateJurisdiction(region string, splitSlack, rateTolerance float64) (*jurisdiction.Config, error) {
	jur, err := jurisdiction.ForRegion(region)
	if err != nil {
		return nil, err
	}

	if splitSlack != -1 {
		jur.SplitSlack = decimal.NewFromFloat(splitSlack)
	}
	if rateTolerance != -1 {
		jur.RateTolerance = decimal.NewFromFloat(rateTolerance)
	}

	if err := jur.Validate(); err != nil {
		return nil, err
	}

	return jur, nil
}

// CreateBatchConfig builds the engine batch configuration
func CreateBatchConfig(inputFile, vendorFile, employeeFile string, jur *jurisdiction.Config, postingView bool) *reconciler.BatchConfig {
	return &reconciler.BatchConfig{
		InputPath:          inputFile,
		Region:             jur.Code,
		VendorLookupPath:   vendorFile,
		EmployeeLookupPath: employeeFile,
		Jurisdiction:       jur,
		IncludePostingView: postingView,
	}
}

// CreateReportConfig builds the report configuration for an output format
func CreateReportConfig(format string, postingView bool) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)
	config.IncludePostingView = postingView
	return config
}
