package cluster

import (
	"slices"

	"sales-dashboard/internal/models"
)

// Thresholds are the average-sales-per-product cut-offs, in currency units,
// above which a segment earns a label. Comparisons are strict.
type Thresholds struct {
	Premium     float64
	HighValue   float64
	MediumValue float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Premium:     50_000_000,
		HighValue:   10_000_000,
		MediumValue: 1_000_000,
	}
}

// Name labels a segment by its average sales per product.
func (t Thresholds) Name(avgSales float64) models.SegmentLabel {
	switch {
	case avgSales > t.Premium:
		return models.SegmentPremium
	case avgSales > t.HighValue:
		return models.SegmentHighValue
	case avgSales > t.MediumValue:
		return models.SegmentMediumValue
	default:
		return models.SegmentStandard
	}
}

var recommendations = map[models.SegmentLabel][]string{
	models.SegmentPremium: {
		"Focus on quality and customer experience",
		"Offer premium bundles with added value",
		"Optimise inventory for high-margin products",
	},
	models.SegmentHighValue: {
		"Increase promotion and visibility",
		"Bundle with complementary products",
		"Monitor stock levels and demand patterns",
	},
	models.SegmentMediumValue: {
		"Grow volume through promotions",
		"Tune pricing for competitive advantage",
		"Focus on customer retention",
	},
	models.SegmentStandard: {
		"Review profitability regularly",
		"Consider bundling with high-value products",
		"Monitor performance metrics",
	},
}

// Recommendations returns the fixed advice list for a segment label.
func Recommendations(label models.SegmentLabel) []string {
	return slices.Clone(recommendations[label])
}

// Profile summarises each cluster of ds. labels holds one cluster id per
// record; segments are keyed by that id.
func Profile(ds *models.Dataset, labels []int, t Thresholds) map[int]models.Segment {
	members := make(map[int][]models.ProductRecord)
	for i, l := range labels {
		members[l] = append(members[l], ds.Records[i])
	}

	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	segments := make(map[int]models.Segment, len(ids))
	for _, id := range ids {
		rows := members[id]
		seg := models.Segment{ID: id, Size: len(rows)}

		for _, r := range rows {
			seg.TotalSales += r.Sales
			seg.TotalQuantity += r.QuantityOrZero()
		}
		if ds.Columns.Sales && len(rows) > 0 {
			seg.AvgSalesPerProduct = seg.TotalSales / float64(len(rows))
		}
		if !ds.Columns.Quantity {
			seg.TotalQuantity = 0
		}

		if ds.Columns.Category {
			seg.TopCategories = topCategories(rows, 3)
		}
		if ds.Columns.Product && ds.Columns.Sales {
			seg.TopProducts = topBySales(rows, 3)
		}

		seg.Label = t.Name(seg.AvgSalesPerProduct)
		seg.Recommendations = Recommendations(seg.Label)
		segments[id] = seg
	}
	return segments
}

// topCategories counts category values, most frequent first. Ties keep the
// order in which the categories first appear.
func topCategories(rows []models.ProductRecord, n int) []models.CategoryCount {
	var counts []models.CategoryCount
	index := make(map[string]int)
	for _, r := range rows {
		if i, ok := index[r.Category]; ok {
			counts[i].Count++
			continue
		}
		index[r.Category] = len(counts)
		counts = append(counts, models.CategoryCount{Category: r.Category, Count: 1})
	}

	slices.SortStableFunc(counts, func(a, b models.CategoryCount) int {
		return b.Count - a.Count
	})
	return counts[:min(n, len(counts))]
}

func topBySales(rows []models.ProductRecord, n int) []models.ProductSales {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b models.ProductRecord) int {
		switch {
		case a.Sales > b.Sales:
			return -1
		case a.Sales < b.Sales:
			return 1
		}
		return 0
	})

	top := make([]models.ProductSales, 0, min(n, len(sorted)))
	for _, r := range sorted[:min(n, len(sorted))] {
		top = append(top, models.ProductSales{Product: r.Name, Sales: r.Sales})
	}
	return top
}
