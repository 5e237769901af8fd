package aggregator

import (
	"testing"

	"github.com/shopspring/decimal"

	"expense-gst-reconciler/internal/jurisdiction"
	"expense-gst-reconciler/internal/models"
)

func aggLine(gross, tax, net string, flag models.MixedFlag) *models.AggregatedLine {
	return &models.AggregatedLine{
		EmployeeID:     "E1",
		ReportID:       "R1",
		DisplayAccount: "620100",
		MixedFlag:      flag,
		Gross:          decimal.RequireFromString(gross),
		Tax:            decimal.RequireFromString(tax),
		Net:            decimal.RequireFromString(net),
	}
}

func TestRateValidator_ConformingLines(t *testing.T) {
	lines := []*models.AggregatedLine{
		aggLine("110.00", "10.00", "100.00", models.MixedNo), // exactly 10%
		aggLine("100.00", "0.00", "100.00", models.MixedNo),  // zero tax skipped
		aggLine("-110.00", "-10.00", "-100.00", models.MixedNo),
	}

	report := NewRateValidator(jurisdiction.AU()).Validate(lines)

	if report.NonConforming != 0 {
		t.Errorf("NonConforming = %d, want 0", report.NonConforming)
	}
	if report.LinesChecked != 3 {
		t.Errorf("LinesChecked = %d, want 3", report.LinesChecked)
	}
}

func TestRateValidator_FlagsOffRateLines(t *testing.T) {
	lines := []*models.AggregatedLine{
		aggLine("100.00", "12.00", "88.00", models.MixedNo), // 13.6%, outside band
	}

	report := NewRateValidator(jurisdiction.AU()).Validate(lines)

	if report.NonConforming != 1 {
		t.Fatalf("NonConforming = %d, want 1", report.NonConforming)
	}
	if len(report.Sample) != 1 {
		t.Fatalf("Sample size = %d, want 1", len(report.Sample))
	}
	finding := report.Sample[0]
	if finding.EmployeeID != "E1" || finding.DisplayAccount != "620100" {
		t.Errorf("finding identity = %s/%s", finding.EmployeeID, finding.DisplayAccount)
	}
	if finding.ImpliedRate.LessThanOrEqual(decimal.RequireFromString("0.105")) {
		t.Errorf("ImpliedRate = %s, expected above tolerance band", finding.ImpliedRate)
	}
}

func TestRateValidator_SkipsMixedAndCheckLines(t *testing.T) {
	lines := []*models.AggregatedLine{
		aggLine("100.00", "12.00", "88.00", models.MixedYes),
		aggLine("100.00", "12.00", "88.00", models.MixedCheck),
	}

	report := NewRateValidator(jurisdiction.AU()).Validate(lines)

	if report.LinesChecked != 0 {
		t.Errorf("LinesChecked = %d, want 0 for mixed lines", report.LinesChecked)
	}
	if report.NonConforming != 0 {
		t.Errorf("NonConforming = %d, want 0", report.NonConforming)
	}
}

func TestRateValidator_SampleBounded(t *testing.T) {
	jur := jurisdiction.AU()

	var lines []*models.AggregatedLine
	for i := 0; i < jur.RateSampleLimit+3; i++ {
		lines = append(lines, aggLine("100.00", "12.00", "88.00", models.MixedNo))
	}

	report := NewRateValidator(jur).Validate(lines)

	if report.NonConforming != jur.RateSampleLimit+3 {
		t.Errorf("NonConforming = %d, want %d", report.NonConforming, jur.RateSampleLimit+3)
	}
	if len(report.Sample) != jur.RateSampleLimit {
		t.Errorf("Sample size = %d, want bounded at %d", len(report.Sample), jur.RateSampleLimit)
	}
}

func TestRateValidator_SkipsTinyNet(t *testing.T) {
	lines := []*models.AggregatedLine{
		aggLine("5.00", "5.00", "0.00", models.MixedNo),
	}

	report := NewRateValidator(jurisdiction.AU()).Validate(lines)

	if report.NonConforming != 0 {
		t.Errorf("NonConforming = %d, want 0 when net is below the zero threshold", report.NonConforming)
	}
}
