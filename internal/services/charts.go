package services

import (
	"cmp"
	"slices"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/models"
)

const maxPieCategories = 6

// Chart keys of an analysis result.
const (
	ChartTopProducts          = "top_products"
	ChartCategoryDistribution = "category_distribution"
	ChartFavoriteMenus        = "favorite_menus"
)

func analysisCharts(ds *models.Dataset, fav models.FavoriteRanking) map[string]models.ChartPayload {
	return map[string]models.ChartPayload{
		ChartTopProducts:          topProductsChart(ds),
		ChartCategoryDistribution: categoryChart(ds),
		ChartFavoriteMenus:        favoritesChart(fav),
	}
}

func topProductsChart(ds *models.Dataset) models.ChartPayload {
	ranked := rankBy(ds, bySales, nil)
	if len(ranked) == 0 {
		return charts.Message("no data available for visualization")
	}

	ranked = ranked[:min(DefaultTopN, len(ranked))]
	labels := make([]string, len(ranked))
	values := make([]float64, len(ranked))
	for n, i := range ranked {
		labels[n] = charts.TruncateLabel(ds.Records[i].Name)
		values[n] = charts.Millions(ds.Records[i].Sales)
	}
	return charts.Bar("Top 10 Products by Sales (Million Rp)", "Sales (Million Rp)", "%.1fM", labels, values, charts.RankPalette)
}

// categoryChart shows the best selling categories' share of sales.
func categoryChart(ds *models.Dataset) models.ChartPayload {
	if !ds.Columns.Category || !ds.Columns.Sales {
		return charts.Message("category data not available")
	}

	totals := make(map[string]float64)
	for _, r := range ds.Records {
		if r.Category != "" {
			totals[r.Category] += r.Sales
		}
	}
	if len(totals) == 0 {
		return charts.Message("category data not available")
	}

	cats := make([]string, 0, len(totals))
	for c := range totals {
		cats = append(cats, c)
	}
	slices.Sort(cats)
	slices.SortStableFunc(cats, func(a, b string) int {
		return cmp.Compare(totals[b], totals[a])
	})
	cats = cats[:min(maxPieCategories, len(cats))]

	values := make([]float64, len(cats))
	for i, c := range cats {
		values[i] = totals[c]
	}
	return charts.Pie("Sales Distribution by Category", cats, values, charts.CategoryPalette)
}

func favoritesChart(fav models.FavoriteRanking) models.ChartPayload {
	if !fav.Success || len(fav.Products) == 0 {
		return charts.Message("favorite menu data not available")
	}

	var title, label, format string
	switch fav.Method {
	case models.FavoriteByQuantity:
		title, label, format = "Top 10 Favorite Menus (by Transaction Count)", "Transactions", "%.0f"
	case models.FavoriteByPercentage:
		title, label, format = "Top 10 Favorite Menus (by Transaction Percentage)", "Transaction Share (%)", "%.1f%%"
	default:
		title, label, format = "Top 10 Favorite Menus (Estimated from Sales Value)", "Estimated Frequency (%)", "%.1f%%"
	}

	labels := make([]string, len(fav.Products))
	values := make([]float64, len(fav.Products))
	for i, p := range fav.Products {
		labels[i] = charts.TruncateLabel(p.Product)
		values[i] = p.Value
	}
	return charts.Bar(title, label, format, labels, values, charts.RankPalette)
}
