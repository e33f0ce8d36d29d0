package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/RyanBlaney/sonido-dedup/detect"
	"github.com/RyanBlaney/sonido-dedup/fingerprint"
	"github.com/RyanBlaney/sonido-dedup/logging"
)

// Processing status values for stored fingerprint rows
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// SQLiteStore implements RecordSource and ResultSink on a local SQLite
// database
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
}

// OpenSQLiteStore opens (or creates) the database at path and ensures the
// schema exists
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS audio_fingerprint (
		asset_id TEXT NOT NULL,
		file_key TEXT NOT NULL,
		format TEXT,
		source TEXT,
		duration REAL,
		fingerprint TEXT,
		file_size INTEGER,
		processing_status TEXT NOT NULL DEFAULT 'SUCCESS',
		error_message TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (asset_id, file_key)
	);
	CREATE INDEX IF NOT EXISTS idx_fingerprint_duration ON audio_fingerprint(duration);

	CREATE TABLE IF NOT EXISTS detected_duplicate (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		asset_id_1 TEXT NOT NULL,
		asset_id_2 TEXT NOT NULL,
		is_same_asset BOOLEAN NOT NULL,
		similarity REAL NOT NULL,
		overlap_ratio REAL NOT NULL,
		duplicate_type TEXT NOT NULL,
		format_1 TEXT,
		format_2 TEXT,
		duration_diff REAL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_duplicate_run ON detected_duplicate(run_id);

	CREATE TABLE IF NOT EXISTS duplicate_cluster (
		run_id TEXT NOT NULL,
		cluster_index INTEGER NOT NULL,
		asset_id TEXT NOT NULL,
		PRIMARY KEY (run_id, cluster_index, asset_id)
	);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db: db,
		logger: logging.WithFields(logging.Fields{
			"component": "sqlite_store",
		}),
	}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertRecord stores a fingerprinted asset record with SUCCESS status.
// Re-inserting the same (asset_id, file_key) replaces the row.
func (s *SQLiteStore) InsertRecord(ctx context.Context, record fingerprint.AssetRecord) error {
	query := `INSERT OR REPLACE INTO audio_fingerprint
		(asset_id, file_key, format, source, duration, fingerprint, file_size, processing_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		record.AssetID, record.FileKey, record.Format, record.Source,
		record.Duration, fingerprint.Encode(record.Fingerprint), record.FileSize, StatusSuccess)
	if err != nil {
		return fmt.Errorf("storage: failed to insert record %s: %w", record.AssetID, err)
	}

	return nil
}

// LoadRecords returns successfully fingerprinted records ordered by duration.
// Rows whose stored fingerprint fails to decode are marked ERROR in place and
// excluded, without failing the load.
func (s *SQLiteStore) LoadRecords(ctx context.Context, limit int) ([]fingerprint.AssetRecord, error) {
	query := `SELECT asset_id, file_key, format, source, duration, fingerprint, file_size
		FROM audio_fingerprint
		WHERE processing_status = ? AND fingerprint != '' AND duration > 0
		ORDER BY duration`
	args := []any{StatusSuccess}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load records: %w", err)
	}
	defer rows.Close()

	var records []fingerprint.AssetRecord
	var malformed []fingerprint.AssetRecord

	for rows.Next() {
		var record fingerprint.AssetRecord
		var raw string

		if err := rows.Scan(&record.AssetID, &record.FileKey, &record.Format,
			&record.Source, &record.Duration, &raw, &record.FileSize); err != nil {
			return nil, fmt.Errorf("storage: failed to scan record: %w", err)
		}

		fp, err := fingerprint.Decode(raw)
		if err != nil {
			s.logger.Warn("Skipping record with malformed fingerprint", logging.Fields{
				"asset_id": record.AssetID,
				"file_key": record.FileKey,
				"error":    err.Error(),
			})
			malformed = append(malformed, record)
			continue
		}

		record.Fingerprint = fp
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: failed to load records: %w", err)
	}

	for _, record := range malformed {
		if err := s.MarkRecordStatus(ctx, record.AssetID, record.FileKey, StatusError, "malformed fingerprint"); err != nil {
			s.logger.Error(err, "Failed to mark malformed record", logging.Fields{
				"asset_id": record.AssetID,
			})
		}
	}

	s.logger.Info("Loaded fingerprint records", logging.Fields{
		"records":   len(records),
		"malformed": len(malformed),
	})

	return records, nil
}

// MarkRecordStatus updates the processing status of a stored record
func (s *SQLiteStore) MarkRecordStatus(ctx context.Context, assetID, fileKey, status, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE audio_fingerprint SET processing_status = ?, error_message = ? WHERE asset_id = ? AND file_key = ?`,
		status, message, assetID, fileKey)
	if err != nil {
		return fmt.Errorf("storage: failed to mark record %s: %w", assetID, err)
	}
	return nil
}

// SaveResults persists similarity results under a batch run ID
func (s *SQLiteStore) SaveResults(ctx context.Context, runID string, results []*fingerprint.SimilarityResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO detected_duplicate
		(run_id, asset_id_1, asset_id_2, is_same_asset, similarity, overlap_ratio,
		 duplicate_type, format_1, format_2, duration_diff)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, result := range results {
		if _, err := tx.ExecContext(ctx, query,
			runID, result.AssetID1, result.AssetID2, result.SameAsset,
			result.Similarity, result.OverlapRatio, string(result.Category),
			result.Format1, result.Format2, result.DurationDiff); err != nil {
			return fmt.Errorf("storage: failed to save result %s/%s: %w",
				result.AssetID1, result.AssetID2, err)
		}
	}

	return tx.Commit()
}

// SaveClusters persists duplicate clusters under a batch run ID
func (s *SQLiteStore) SaveClusters(ctx context.Context, runID string, clusters []detect.DuplicateCluster) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO duplicate_cluster (run_id, cluster_index, asset_id) VALUES (?, ?, ?)`

	for index, cluster := range clusters {
		for _, member := range cluster.Members {
			if _, err := tx.ExecContext(ctx, query, runID, index, member); err != nil {
				return fmt.Errorf("storage: failed to save cluster %d: %w", index, err)
			}
		}
	}

	return tx.Commit()
}

// SaveBatch persists a full batch report (duplicate edges, variants and
// clusters) under a fresh run ID, which it returns
func (s *SQLiteStore) SaveBatch(ctx context.Context, report *detect.BatchReport) (string, error) {
	runID := uuid.NewString()

	results := make([]*fingerprint.SimilarityResult, 0, len(report.DuplicateEdges)+len(report.Variants))
	results = append(results, report.DuplicateEdges...)
	results = append(results, report.Variants...)

	if err := s.SaveResults(ctx, runID, results); err != nil {
		return "", err
	}
	if err := s.SaveClusters(ctx, runID, report.Clusters); err != nil {
		return "", err
	}

	s.logger.Info("Saved detection batch", logging.Fields{
		"run_id":   runID,
		"results":  len(results),
		"clusters": len(report.Clusters),
	})

	return runID, nil
}
