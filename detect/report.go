package detect

import (
	"time"

	"github.com/RyanBlaney/sonido-dedup/fingerprint"
)

// DuplicateCluster is a set of asset identifiers connected, directly or
// transitively, by duplicate edges. Members are sorted by identifier.
type DuplicateCluster struct {
	Members []string `json:"members"`
}

// SkippedRecord reports a record that was excluded from clustering, and why.
// Skips are always surfaced in the batch report, never silently swallowed.
type SkippedRecord struct {
	AssetID string `json:"asset_id"`
	Reason  string `json:"reason"`
}

// BatchReport is the complete outcome of one duplicate-detection batch
type BatchReport struct {
	Clusters []DuplicateCluster `json:"clusters"`

	// DuplicateEdges are the IDENTICAL and SAME_CONTENT_DIFFERENT_FORMAT pairs
	// that formed the clusters
	DuplicateEdges []*fingerprint.SimilarityResult `json:"duplicate_edges"`

	// Variants are RELATED_VARIANT pairs, reported but never merged into
	// clusters
	Variants []*fingerprint.SimilarityResult `json:"variants"`

	Skipped []SkippedRecord `json:"skipped,omitempty"`

	RecordsTotal    int `json:"records_total"`
	RecordsCompared int `json:"records_compared"`

	// Comparisons counts pairwise scores actually computed; with duration
	// pruning this stays far below n*(n-1)/2
	Comparisons int `json:"comparisons"`

	ProcessingTime time.Duration `json:"processing_time"`

	// Summary holds similarity statistics over the duplicate edges
	Summary map[string]float64 `json:"summary,omitempty"`
}

// ExactDuplicateGroup is a set of records sharing a byte-identical
// fingerprint
type ExactDuplicateGroup struct {
	Members []fingerprint.AssetRecord `json:"members"`
}
