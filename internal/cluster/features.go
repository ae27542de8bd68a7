package cluster

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"sales-dashboard/internal/models"
)

// Feature column names.
const (
	FeatureTotalSales    = "total_sales"
	FeatureSalesPerUnit  = "sales_per_unit"
	FeatureQuantity      = "quantity_sold"
	FeatureProfitability = "profitability_score"
	categoryPrefix       = "cat_"
)

// FeatureTable is a numeric projection of a dataset, one row per record.
// It lives for a single clustering run.
type FeatureTable struct {
	Columns []string
	Rows    [][]float64
}

func (t *FeatureTable) NumRows() int { return len(t.Rows) }

// Empty reports whether the table has no rows or no usable columns.
func (t *FeatureTable) Empty() bool {
	return len(t.Rows) == 0 || len(t.Columns) == 0
}

// BuildFeatures derives the clustering features of ds. Columns whose
// sample variance is not strictly positive, including undefined variance,
// are dropped.
func BuildFeatures(ds *models.Dataset) *FeatureTable {
	n := ds.Len()
	if n == 0 {
		return &FeatureTable{}
	}
	var names []string
	var cols [][]float64

	add := func(name string, col []float64) {
		names = append(names, name)
		cols = append(cols, col)
	}

	sales := make([]float64, n)
	quantity := make([]float64, n)
	for i, r := range ds.Records {
		sales[i] = r.Sales
		quantity[i] = r.QuantityOrZero()
	}

	hasSales := ds.Columns.Sales
	hasQty := ds.Columns.Quantity

	if hasSales {
		add(FeatureTotalSales, sales)
		if hasQty {
			perUnit := make([]float64, n)
			for i := range perUnit {
				q := quantity[i]
				if q == 0 {
					q = 1
				}
				perUnit[i] = sales[i] / q
			}
			add(FeatureSalesPerUnit, perUnit)
		}
	}

	if hasQty {
		add(FeatureQuantity, quantity)
	}

	if ds.Columns.Category {
		for _, cat := range distinctCategories(ds) {
			indicator := make([]float64, n)
			for i, r := range ds.Records {
				if r.Category == cat {
					indicator[i] = 1
				}
			}
			add(categoryPrefix+cat, indicator)
		}
	}

	if hasSales && hasQty {
		if score, ok := profitability(sales, quantity); ok {
			add(FeatureProfitability, score)
		}
	}

	table := &FeatureTable{Rows: make([][]float64, n)}
	var kept [][]float64
	for i, col := range cols {
		if v := stat.Variance(col, nil); v > 0 && !math.IsNaN(v) {
			table.Columns = append(table.Columns, names[i])
			kept = append(kept, col)
		}
	}

	for i := range table.Rows {
		row := make([]float64, len(kept))
		for j, col := range kept {
			row[j] = col[i]
		}
		table.Rows[i] = row
	}
	return table
}

func distinctCategories(ds *models.Dataset) []string {
	seen := make(map[string]struct{})
	var cats []string
	for _, r := range ds.Records {
		if r.Category == "" {
			continue
		}
		if _, ok := seen[r.Category]; !ok {
			seen[r.Category] = struct{}{}
			cats = append(cats, r.Category)
		}
	}
	slices.Sort(cats)
	return cats
}

// profitability multiplies the z-scores of sales and quantity. ok is false
// when either column has zero or undefined deviation.
func profitability(sales, quantity []float64) ([]float64, bool) {
	sMean, sStd := stat.MeanStdDev(sales, nil)
	qMean, qStd := stat.MeanStdDev(quantity, nil)
	if !(sStd > 0) || !(qStd > 0) {
		return nil, false
	}

	score := make([]float64, len(sales))
	for i := range score {
		score[i] = (sales[i] - sMean) / sStd * ((quantity[i] - qMean) / qStd)
	}
	return score, true
}

// standardize scales every column to zero mean and unit population
// variance. Statistics are computed from rows alone and discarded after the
// call. Constant columns keep a scale of 1.
func standardize(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}
	dims := len(rows[0])
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = make([]float64, dims)
	}

	col := make([]float64, len(rows))
	for j := 0; j < dims; j++ {
		for i, row := range rows {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if !(std > 0) {
			std = 1
		}
		for i, row := range rows {
			out[i][j] = (row[j] - mean) / std
		}
	}
	return out
}
