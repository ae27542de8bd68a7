// Package storage persists uploads, processed snapshots and the metadata
// table that indexes them.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"sales-dashboard/internal/models"
)

const schema = `CREATE TABLE IF NOT EXISTS datasets (
	id            TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	upload_time   TEXT NOT NULL,
	record_count  INTEGER NOT NULL,
	total_sales   REAL NOT NULL,
	snapshot_path TEXT,
	analysis_ok   INTEGER NOT NULL DEFAULT 0,
	clustering_ok INTEGER NOT NULL DEFAULT 0
)`

// DatasetMeta is one row of the metadata table.
type DatasetMeta struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	UploadTime   time.Time `json:"upload_time"`
	RecordCount  int       `json:"record_count"`
	TotalSales   float64   `json:"total_sales"`
	SnapshotPath string    `json:"snapshot_path,omitempty"`
	AnalysisOK   bool      `json:"analysis_ok"`
	ClusteringOK bool      `json:"clustering_ok"`
}

// MetaFromDataset builds the metadata row describing ds.
func MetaFromDataset(ds *models.Dataset) DatasetMeta {
	total := 0.0
	for _, r := range ds.Records {
		total += r.Sales
	}
	return DatasetMeta{
		ID:           ds.ID,
		Filename:     ds.SourceFilename,
		UploadTime:   ds.UploadTime,
		RecordCount:  ds.Len(),
		TotalSales:   total,
		SnapshotPath: ds.SnapshotPath,
		AnalysisOK:   ds.Analysis != nil && ds.Analysis.Success,
		ClusteringOK: ds.Clustering != nil && ds.Clustering.Success,
	}
}

// MetadataStore is a SQLite table of dataset metadata.
type MetadataStore struct {
	db *sql.DB
}

// OpenMetadata opens or creates the database at path. Use ":memory:" for a
// throwaway store.
func OpenMetadata(ctx context.Context, path string) (*MetadataStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create datasets table: %w", err)
	}
	return &MetadataStore{db: db}, nil
}

func (m *MetadataStore) Close() error {
	return m.db.Close()
}

func (m *MetadataStore) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Save inserts meta or replaces the row with the same id.
func (m *MetadataStore) Save(ctx context.Context, meta DatasetMeta) error {
	const q = `INSERT OR REPLACE INTO datasets
		(id, filename, upload_time, record_count, total_sales, snapshot_path, analysis_ok, clustering_ok)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := m.db.ExecContext(ctx, q,
		meta.ID,
		meta.Filename,
		meta.UploadTime.UTC().Format(time.RFC3339Nano),
		meta.RecordCount,
		meta.TotalSales,
		sql.NullString{String: meta.SnapshotPath, Valid: meta.SnapshotPath != ""},
		meta.AnalysisOK,
		meta.ClusteringOK,
	)
	if err != nil {
		return fmt.Errorf("save dataset %s: %w", meta.ID, err)
	}
	return nil
}

func (m *MetadataStore) Delete(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}
	return nil
}

// Clear removes every row and reports how many there were.
func (m *MetadataStore) Clear(ctx context.Context) (int64, error) {
	res, err := m.db.ExecContext(ctx, `DELETE FROM datasets`)
	if err != nil {
		return 0, fmt.Errorf("clear datasets: %w", err)
	}
	return res.RowsAffected()
}

// List returns all rows, oldest upload first.
func (m *MetadataStore) List(ctx context.Context) ([]DatasetMeta, error) {
	const q = `SELECT id, filename, upload_time, record_count, total_sales, snapshot_path, analysis_ok, clustering_ok
		FROM datasets ORDER BY upload_time, rowid`

	rows, err := m.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []DatasetMeta
	for rows.Next() {
		var (
			meta     DatasetMeta
			uploaded string
			snapshot sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Filename, &uploaded, &meta.RecordCount, &meta.TotalSales,
			&snapshot, &meta.AnalysisOK, &meta.ClusteringOK); err != nil {
			return nil, fmt.Errorf("scan dataset row: %w", err)
		}
		if meta.UploadTime, err = time.Parse(time.RFC3339Nano, uploaded); err != nil {
			return nil, fmt.Errorf("parse upload time of %s: %w", meta.ID, err)
		}
		meta.SnapshotPath = snapshot.String
		out = append(out, meta)
	}
	return out, rows.Err()
}
