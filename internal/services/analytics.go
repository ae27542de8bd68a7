package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

const (
	DefaultTopN = 10

	trendKey = "sales_distribution"

	estimatedFromSales = "transaction frequency estimated from relative sales value"
)

var (
	ErrNoSalesColumn  = errors.New("missing sales column")
	ErrNoFavoriteData = errors.New("insufficient data for favorite-menu analysis.")
)

// Analyzer computes descriptive sales analytics for one dataset at a time.
// It holds no per-dataset state.
type Analyzer struct {
	topN   int
	logger *slog.Logger
}

func NewAnalyzer(topN int, logger *slog.Logger) *Analyzer {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{topN: topN, logger: logger}
}

// Analyze never fails outright. Errors and panics become a result with
// Success false so the dataset stays usable without analytics.
func (a *Analyzer) Analyze(ctx context.Context, ds *models.Dataset) (res *models.AnalysisResult) {
	ctx, span := observability.StartSpan(ctx, "analysis.sales")
	defer span.End(ctx, a.logger)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("analysis panicked: %v", r)
			a.logger.Error("sales analysis failed", "error", err)
			span.SetError(err)
			res = &models.AnalysisResult{Success: false, Error: err.Error()}
		}
	}()

	if !ds.Columns.Sales {
		a.logger.Warn("sales analysis not performed", "dataset", ds.SourceFilename, "error", ErrNoSalesColumn)
		span.SetError(ErrNoSalesColumn)
		return &models.AnalysisResult{Success: false, Error: ErrNoSalesColumn.Error()}
	}

	favorites := a.favorites(ds)
	res = &models.AnalysisResult{
		Success:     true,
		BasicStats:  basicStats(ds),
		Categories:  categoryRollup(ds),
		TopProducts: a.topProducts(ds),
		Favorites:   favorites,
		SalesTrend:  salesTrend(ds),
	}
	res.Charts = analysisCharts(ds, favorites)

	a.logger.Info("sales analysis complete",
		"dataset", ds.SourceFilename,
		"records", ds.Len(),
		"total_sales", res.BasicStats.TotalSales,
		"favorite_method", favorites.Method,
	)
	return res
}

func salesColumn(ds *models.Dataset) []float64 {
	sales := make([]float64, ds.Len())
	for i, r := range ds.Records {
		sales[i] = r.Sales
	}
	return sales
}

func totalQuantity(ds *models.Dataset) float64 {
	if !ds.Columns.Quantity {
		return 0
	}
	total := 0.0
	for _, r := range ds.Records {
		total += r.QuantityOrZero()
	}
	return total
}

func basicStats(ds *models.Dataset) models.BasicStats {
	sales := salesColumn(ds)
	stats := models.BasicStats{
		TotalProducts: len(sales),
		TotalSales:    floats.Sum(sales),
		TotalQuantity: totalQuantity(ds),
	}
	if len(sales) == 0 {
		return stats
	}

	stats.AvgSalesPerProduct = stat.Mean(sales, nil)
	stats.MaxSales = floats.Max(sales)
	stats.MinSales = floats.Min(sales)
	stats.MedianSales = quantile(sales, 0.5)
	if stats.TotalQuantity > 0 {
		stats.AvgPricePerUnit = stats.TotalSales / stats.TotalQuantity
	}
	return stats
}

// categoryRollup groups rows by category. Without a quantity column the
// quantity slot carries the row count. Rows with no category are left out.
func categoryRollup(ds *models.Dataset) map[string]models.CategoryStats {
	rollup := make(map[string]models.CategoryStats)
	if !ds.Columns.Category {
		return rollup
	}

	for _, r := range ds.Records {
		if r.Category == "" {
			continue
		}
		cs := rollup[r.Category]
		cs.TotalSales += r.Sales
		cs.ProductCount++
		if ds.Columns.Quantity {
			cs.TotalQuantity += r.QuantityOrZero()
		} else {
			cs.TotalQuantity++
		}
		rollup[r.Category] = cs
	}

	for cat, cs := range rollup {
		cs.AvgSales = round2(cs.TotalSales / float64(cs.ProductCount))
		cs.TotalSales = round2(cs.TotalSales)
		cs.TotalQuantity = round2(cs.TotalQuantity)
		rollup[cat] = cs
	}
	return rollup
}

// rankBy returns the indexes of the records accepted by keep, ordered by
// value descending. Equal values keep record order.
func rankBy(ds *models.Dataset, value func(models.ProductRecord) float64, keep func(models.ProductRecord) bool) []int {
	var idx []int
	for i, r := range ds.Records {
		if keep == nil || keep(r) {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(i, j int) int {
		return cmp.Compare(value(ds.Records[j]), value(ds.Records[i]))
	})
	return idx
}

func bySales(r models.ProductRecord) float64 { return r.Sales }

func (a *Analyzer) topProducts(ds *models.Dataset) []models.TopProduct {
	ranked := rankBy(ds, bySales, nil)
	top := make([]models.TopProduct, 0, min(a.topN, len(ranked)))
	for _, i := range ranked[:min(a.topN, len(ranked))] {
		r := ds.Records[i]
		tp := models.TopProduct{Product: r.Name, Sales: r.Sales, Category: r.Category}
		if ds.Columns.Quantity && r.Quantity.Valid {
			q := r.Quantity.Float64
			tp.Quantity = &q
		}
		top = append(top, tp)
	}
	return top
}

// favorites ranks products by the best signal the dataset carries:
// recorded quantity, then percentage sold, then share of total sales.
// Exactly one tier is used.
func (a *Analyzer) favorites(ds *models.Dataset) models.FavoriteRanking {
	hasQuantity := func(r models.ProductRecord) bool { return r.Quantity.Valid }
	hasPercentage := func(r models.ProductRecord) bool { return r.Percentage.Valid }

	switch {
	case ds.Columns.Quantity && slices.ContainsFunc(ds.Records, hasQuantity) && totalQuantity(ds) > 0:
		ranked := rankBy(ds, models.ProductRecord.QuantityOrZero, hasQuantity)
		return a.ranking(ds, models.FavoriteByQuantity, ranked, models.ProductRecord.QuantityOrZero)

	case ds.Columns.Percentage && slices.ContainsFunc(ds.Records, hasPercentage):
		pct := func(r models.ProductRecord) float64 { return r.Percentage.Float64 }
		ranked := rankBy(ds, pct, hasPercentage)
		return a.ranking(ds, models.FavoriteByPercentage, ranked, func(r models.ProductRecord) float64 {
			return round2(pct(r))
		})

	case ds.Columns.Sales:
		total := floats.Sum(salesColumn(ds))
		if total == 0 {
			break
		}
		share := func(r models.ProductRecord) float64 { return r.Sales / total * 100 }
		ranked := rankBy(ds, share, nil)
		fr := a.ranking(ds, models.FavoriteBySales, ranked, func(r models.ProductRecord) float64 {
			return round2(share(r))
		})
		fr.Note = estimatedFromSales
		return fr
	}

	return models.FavoriteRanking{Success: false, Error: ErrNoFavoriteData.Error()}
}

func (a *Analyzer) ranking(ds *models.Dataset, method models.FavoriteMethod, ranked []int, value func(models.ProductRecord) float64) models.FavoriteRanking {
	ranked = ranked[:min(a.topN, len(ranked))]
	products := make([]models.FavoriteProduct, 0, len(ranked))
	for _, i := range ranked {
		r := ds.Records[i]
		products = append(products, models.FavoriteProduct{
			Product:  r.Name,
			Value:    value(r),
			Sales:    r.Sales,
			Category: r.Category,
		})
	}
	return models.FavoriteRanking{
		Success:       true,
		Method:        method,
		Products:      products,
		TotalAnalyzed: len(products),
	}
}

func salesTrend(ds *models.Dataset) map[string]models.SalesDistribution {
	trend := make(map[string]models.SalesDistribution)
	sales := salesColumn(ds)
	if len(sales) == 0 {
		return trend
	}

	dist := models.SalesDistribution{
		Q1:     quantile(sales, 0.25),
		Median: quantile(sales, 0.5),
		Q3:     quantile(sales, 0.75),
	}
	if len(sales) > 1 {
		dist.Std = stat.StdDev(sales, nil)
	}
	trend[trendKey] = dist
	return trend
}

// quantile interpolates linearly between closest ranks, the estimator
// spreadsheet tools and dataframe libraries default to.
func quantile(values []float64, p float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := min(lo+1, len(sorted)-1)
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
