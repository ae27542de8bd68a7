package dataset

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"sales-dashboard/internal/models"
)

const dateLayout = "2006-01-02"

var ErrNoSalesColumn = errors.New("csv has no sales amount column")

// headerAliases maps accepted header spellings to canonical columns. The
// Indonesian names are those used by the report exports.
var headerAliases = map[string]string{
	"product":            models.ColumnProduct,
	"produk":             models.ColumnProduct,
	"name":               models.ColumnProduct,
	"product_name":       models.ColumnProduct,
	"quantity_sold":      models.ColumnQuantity,
	"jumlah_terjual":     models.ColumnQuantity,
	"quantity":           models.ColumnQuantity,
	"qty":                models.ColumnQuantity,
	"sales_amount":       models.ColumnSales,
	"penjualan_rp":       models.ColumnSales,
	"sales":              models.ColumnSales,
	"total_sales":        models.ColumnSales,
	"category":           models.ColumnCategory,
	"kategori":           models.ColumnCategory,
	"percentage_sold":    models.ColumnPercentage,
	"persentase_terjual": models.ColumnPercentage,
	"date":               models.ColumnDate,
	"tanggal":            models.ColumnDate,
}

// ReadCSV loads a dataset from CSV. A sales column is required; product,
// quantity, category, percentage and date are optional. Malformed rows and
// rows whose sales value does not parse or is negative are skipped with a
// warning; only header and read errors fail the load.
func ReadCSV(r io.Reader, filename string, logger *slog.Logger) (*models.Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canonical, ok := headerAliases[key]; ok {
			if _, dup := index[canonical]; !dup {
				index[canonical] = i
			}
		}
	}

	salesIdx, ok := index[models.ColumnSales]
	if !ok {
		return nil, ErrNoSalesColumn
	}

	ds := &models.Dataset{
		ID:             uuid.NewString(),
		SourceFilename: filename,
		UploadTime:     time.Now(),
	}
	_, ds.Columns.Product = index[models.ColumnProduct]
	_, ds.Columns.Quantity = index[models.ColumnQuantity]
	_, ds.Columns.Category = index[models.ColumnCategory]
	_, ds.Columns.Percentage = index[models.ColumnPercentage]
	_, ds.Columns.Date = index[models.ColumnDate]
	ds.Columns.Sales = true

	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			logger.Warn("skipping malformed csv row", "file", filename, "line", parseErr.StartLine, "error", parseErr.Err)
			skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		sales, ok := parseFloat(field(record, salesIdx))
		if !ok || sales < 0 {
			skipped++
			continue
		}

		rec := models.ProductRecord{Sales: sales}
		if i, ok := index[models.ColumnProduct]; ok {
			rec.Name = strings.TrimSpace(field(record, i))
		}
		if i, ok := index[models.ColumnQuantity]; ok {
			rec.Quantity = nullFloat(field(record, i))
		}
		if i, ok := index[models.ColumnCategory]; ok {
			rec.Category = strings.TrimSpace(field(record, i))
		}
		if i, ok := index[models.ColumnPercentage]; ok {
			rec.Percentage = nullFloat(field(record, i))
		}
		if i, ok := index[models.ColumnDate]; ok {
			if d, err := time.Parse(dateLayout, strings.TrimSpace(field(record, i))); err == nil {
				rec.Date = d
			}
		}
		ds.Records = append(ds.Records, rec)
	}

	if skipped > 0 {
		logger.Warn("csv rows skipped", "file", filename, "skipped", skipped, "loaded", len(ds.Records))
	}
	return ds, nil
}

// ReadCSVFile loads a dataset from a CSV file on disk.
func ReadCSVFile(path string, logger *slog.Logger) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	ds, err := ReadCSV(f, filepath.Base(path), logger)
	if err != nil {
		return nil, err
	}
	ds.SnapshotPath = path
	return ds, nil
}

// WriteCSV writes the dataset with its present columns in canonical order.
func WriteCSV(w io.Writer, ds *models.Dataset) error {
	cols := ds.Columns.Names()
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(cols))
	for _, rec := range ds.Records {
		for i, col := range cols {
			row[i] = formatField(rec, col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the dataset to path, creating parent directories.
func WriteCSVFile(path string, ds *models.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := WriteCSV(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Combine concatenates the records of several datasets into a new one whose
// columns are the union of theirs.
func Combine(name string, datasets ...*models.Dataset) *models.Dataset {
	combined := &models.Dataset{
		ID:             uuid.NewString(),
		SourceFilename: name,
		UploadTime:     time.Now(),
	}
	total := 0
	for _, ds := range datasets {
		total += ds.Len()
	}
	combined.Records = make([]models.ProductRecord, 0, total)
	for _, ds := range datasets {
		combined.Columns = combined.Columns.Union(ds.Columns)
		combined.Records = append(combined.Records, ds.Records...)
	}
	return combined
}

func field(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func nullFloat(s string) sql.NullFloat64 {
	v, ok := parseFloat(s)
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func formatNull(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

func formatField(rec models.ProductRecord, col string) string {
	switch col {
	case models.ColumnProduct:
		return rec.Name
	case models.ColumnQuantity:
		return formatNull(rec.Quantity)
	case models.ColumnSales:
		return strconv.FormatFloat(rec.Sales, 'f', -1, 64)
	case models.ColumnCategory:
		return rec.Category
	case models.ColumnDate:
		if rec.Date.IsZero() {
			return ""
		}
		return rec.Date.Format(dateLayout)
	case models.ColumnPercentage:
		return formatNull(rec.Percentage)
	}
	return ""
}
