package models

import (
	"database/sql"
	"time"
)

// Canonical column names of a product-sales dataset, in output order.
const (
	ColumnProduct    = "product"
	ColumnQuantity   = "quantity_sold"
	ColumnSales      = "sales_amount"
	ColumnCategory   = "category"
	ColumnDate       = "date"
	ColumnPercentage = "percentage_sold"
)

// CanonicalColumns is the schema written for every extracted dataset.
var CanonicalColumns = []string{ColumnProduct, ColumnQuantity, ColumnSales, ColumnCategory, ColumnDate}

// ProductRecord is one product row of a sales report.
type ProductRecord struct {
	Name       string          `json:"product"`
	Quantity   sql.NullFloat64 `json:"-"`
	Sales      float64         `json:"sales_amount"`
	Category   string          `json:"category"`
	Date       time.Time       `json:"date"`
	Percentage sql.NullFloat64 `json:"-"`
}

// QuantityOrZero returns the quantity sold, 0 when missing.
func (r ProductRecord) QuantityOrZero() float64 {
	if r.Quantity.Valid {
		return r.Quantity.Float64
	}
	return 0
}

// Columns records which optional columns a dataset carries.
type Columns struct {
	Product    bool `json:"product"`
	Quantity   bool `json:"quantity_sold"`
	Sales      bool `json:"sales_amount"`
	Category   bool `json:"category"`
	Date       bool `json:"date"`
	Percentage bool `json:"percentage_sold"`
}

// CanonicalSchema is the column set of an extracted dataset.
func CanonicalSchema() Columns {
	return Columns{Product: true, Quantity: true, Sales: true, Category: true, Date: true}
}

// Names lists the present columns in canonical order.
func (c Columns) Names() []string {
	var names []string
	if c.Product {
		names = append(names, ColumnProduct)
	}
	if c.Quantity {
		names = append(names, ColumnQuantity)
	}
	if c.Sales {
		names = append(names, ColumnSales)
	}
	if c.Category {
		names = append(names, ColumnCategory)
	}
	if c.Date {
		names = append(names, ColumnDate)
	}
	if c.Percentage {
		names = append(names, ColumnPercentage)
	}
	return names
}

// Union returns the columns present in either set.
func (c Columns) Union(o Columns) Columns {
	return Columns{
		Product:    c.Product || o.Product,
		Quantity:   c.Quantity || o.Quantity,
		Sales:      c.Sales || o.Sales,
		Category:   c.Category || o.Category,
		Date:       c.Date || o.Date,
		Percentage: c.Percentage || o.Percentage,
	}
}

// Dataset is an ordered, immutable sequence of product records plus the
// results computed from it. Results are attached by building a new Dataset
// value with WithResults.
type Dataset struct {
	ID             string            `json:"id"`
	Records        []ProductRecord   `json:"-"`
	Columns        Columns           `json:"columns"`
	SourceFilename string            `json:"filename"`
	SnapshotPath   string            `json:"snapshot_path,omitempty"`
	UploadTime     time.Time         `json:"upload_time"`
	Analysis       *AnalysisResult   `json:"analysis_results,omitempty"`
	Clustering     *ClusteringResult `json:"clustering_results,omitempty"`
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// WithResults returns a copy of d carrying the given results. The record
// slice is shared; records are never modified after creation.
func (d *Dataset) WithResults(analysis *AnalysisResult, clustering *ClusteringResult) *Dataset {
	cp := *d
	cp.Analysis = analysis
	cp.Clustering = clustering
	return &cp
}

// DatasetSummary is the history-list view of a dataset.
type DatasetSummary struct {
	Index        int       `json:"index"`
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	UploadTime   time.Time `json:"upload_time"`
	RecordCount  int       `json:"record_count"`
	Active       bool      `json:"active"`
	AnalysisOK   bool      `json:"analysis_ok"`
	ClusteringOK bool      `json:"clustering_ok"`
}
