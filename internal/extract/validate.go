package extract

import (
	"log/slog"

	"sales-dashboard/internal/models"
)

// ValidationReport compares an extraction against the known report total.
type ValidationReport struct {
	Records        int     `json:"records"`
	ExtractedTotal float64 `json:"extracted_total"`
	ExpectedTotal  float64 `json:"expected_total"`
	AvgSales       float64 `json:"avg_sales"`
	// Accuracy is ExtractedTotal as a percentage of ExpectedTotal.
	Accuracy float64 `json:"accuracy_pct"`
	Dropped  int     `json:"dropped_outliers"`
}

// Validate logs the extracted total against the expected total and drops
// records at or above the outlier ceiling. The accuracy ratio is
// informational and never rejects a dataset.
func (h Heuristics) Validate(records []models.ProductRecord, logger *slog.Logger) ([]models.ProductRecord, ValidationReport) {
	report := ValidationReport{
		Records:       len(records),
		ExpectedTotal: h.ExpectedTotal,
	}

	for _, r := range records {
		report.ExtractedTotal += r.Sales
	}
	if len(records) > 0 {
		report.AvgSales = report.ExtractedTotal / float64(len(records))
	}
	if h.ExpectedTotal > 0 {
		report.Accuracy = report.ExtractedTotal / h.ExpectedTotal * 100
	}

	kept := make([]models.ProductRecord, 0, len(records))
	for _, r := range records {
		if r.Sales >= h.OutlierCeiling {
			logger.Warn("dropping outlier record", "product", r.Name, "sales", r.Sales)
			continue
		}
		kept = append(kept, r)
	}
	report.Dropped = len(records) - len(kept)

	logger.Info("extraction validated",
		"records", report.Records,
		"extracted_total", report.ExtractedTotal,
		"expected_total", report.ExpectedTotal,
		"avg_sales", report.AvgSales,
		"accuracy_pct", report.Accuracy,
		"dropped", report.Dropped,
	)

	return kept, report
}
