package models

// BasicStats summarises the sales column of a dataset.
type BasicStats struct {
	TotalProducts      int     `json:"total_products"`
	TotalSales         float64 `json:"total_sales"`
	TotalQuantity      float64 `json:"total_quantity"`
	AvgSalesPerProduct float64 `json:"avg_sales_per_product"`
	AvgPricePerUnit    float64 `json:"avg_price_per_unit"`
	MaxSales           float64 `json:"max_sales"`
	MinSales           float64 `json:"min_sales"`
	MedianSales        float64 `json:"median_sales"`
}

type CategoryStats struct {
	TotalSales    float64 `json:"total_sales"`
	AvgSales      float64 `json:"avg_sales"`
	ProductCount  int     `json:"product_count"`
	TotalQuantity float64 `json:"total_quantity"`
}

type TopProduct struct {
	Product  string   `json:"product"`
	Sales    float64  `json:"sales_amount"`
	Quantity *float64 `json:"quantity_sold,omitempty"`
	Category string   `json:"category"`
}

// FavoriteMethod names the ranking strategy used for favorite products.
type FavoriteMethod string

const (
	FavoriteByQuantity   FavoriteMethod = "direct transaction count"
	FavoriteByPercentage FavoriteMethod = "percentage-based"
	FavoriteBySales      FavoriteMethod = "estimated from sales value"
)

type FavoriteProduct struct {
	Product  string  `json:"product"`
	Value    float64 `json:"value"`
	Sales    float64 `json:"sales_amount"`
	Category string  `json:"category"`
}

// FavoriteRanking is the favorite-menu ranking or a failure with its reason.
type FavoriteRanking struct {
	Success       bool              `json:"success"`
	Error         string            `json:"error,omitempty"`
	Method        FavoriteMethod    `json:"method,omitempty"`
	Products      []FavoriteProduct `json:"favorite_menus,omitempty"`
	TotalAnalyzed int               `json:"total_analyzed"`
	Note          string            `json:"note,omitempty"`
}

type SalesDistribution struct {
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Std    float64 `json:"std"`
}

// ChartKind tells the presentation layer how to draw a payload.
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartPie     ChartKind = "pie"
	ChartMessage ChartKind = "message"
)

// ChartPayload is the data a chart renders from. Pixel rendering is left to
// the presentation layer.
type ChartPayload struct {
	Kind       ChartKind `json:"kind"`
	Title      string    `json:"title"`
	ValueLabel string    `json:"value_label,omitempty"`
	ValueFmt   string    `json:"value_format,omitempty"`
	Labels     []string  `json:"labels,omitempty"`
	Values     []float64 `json:"values,omitempty"`
	Colors     []string  `json:"colors,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// AnalysisResult holds the descriptive analytics of one dataset, or a
// failure with its reason.
type AnalysisResult struct {
	Success     bool                         `json:"success"`
	Error       string                       `json:"error,omitempty"`
	BasicStats  BasicStats                   `json:"basic_stats"`
	Categories  map[string]CategoryStats     `json:"category_analysis"`
	TopProducts []TopProduct                 `json:"top_products"`
	Favorites   FavoriteRanking              `json:"favorite_menus"`
	SalesTrend  map[string]SalesDistribution `json:"sales_trends"`
	Charts      map[string]ChartPayload      `json:"visualizations"`
}

// SegmentLabel is the qualitative name of a segment.
type SegmentLabel string

const (
	SegmentPremium     SegmentLabel = "Premium"
	SegmentHighValue   SegmentLabel = "High-Value"
	SegmentMediumValue SegmentLabel = "Medium-Value"
	SegmentStandard    SegmentLabel = "Standard"
)

type ProductSales struct {
	Product string  `json:"product"`
	Sales   float64 `json:"sales_amount"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Segment describes one cluster of product rows.
type Segment struct {
	ID                 int             `json:"id"`
	Size               int             `json:"segment_size"`
	TotalSales         float64         `json:"total_sales"`
	AvgSalesPerProduct float64         `json:"avg_sales_per_product"`
	TotalQuantity      float64         `json:"total_quantity"`
	TopCategories      []CategoryCount `json:"top_categories,omitempty"`
	TopProducts        []ProductSales  `json:"top_products,omitempty"`
	Label              SegmentLabel    `json:"segment_name"`
	Recommendations    []string        `json:"recommendations"`
}

// ClusteringResult is the outcome of one segmentation run, or a failure
// with its reason.
type ClusteringResult struct {
	Success      bool                    `json:"success"`
	Error        string                  `json:"error,omitempty"`
	K            int                     `json:"optimal_clusters"`
	Labels       []int                   `json:"labels"`
	Centers      [][]float64             `json:"centers"`
	Inertia      float64                 `json:"inertia"`
	Silhouette   float64                 `json:"silhouette_score"`
	Segments     map[int]Segment         `json:"customer_segments"`
	FeaturesUsed []string                `json:"features_used"`
	Charts       map[string]ChartPayload `json:"visualizations"`
}
