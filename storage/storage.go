// Package storage defines the collaborator contracts around the detection
// core (where asset records come from and where results go) plus a local
// SQLite implementation.
package storage

import (
	"context"

	"github.com/RyanBlaney/sonido-dedup/detect"
	"github.com/RyanBlaney/sonido-dedup/fingerprint"
)

// RecordSource supplies the full set of fingerprinted asset records for a
// detection batch. The core never queries, pages, or caches records itself.
type RecordSource interface {
	// LoadRecords returns successfully fingerprinted records ordered by
	// duration. A limit <= 0 loads everything.
	LoadRecords(ctx context.Context, limit int) ([]fingerprint.AssetRecord, error)
}

// ResultSink receives detection outputs for persistence. The core returns
// in-memory structures and performs no writes of its own.
type ResultSink interface {
	SaveResults(ctx context.Context, runID string, results []*fingerprint.SimilarityResult) error
	SaveClusters(ctx context.Context, runID string, clusters []detect.DuplicateCluster) error

	// MarkRecordStatus updates the processing status of a stored record
	// (e.g. SUCCESS, ERROR with a message)
	MarkRecordStatus(ctx context.Context, assetID, fileKey, status, message string) error
}
