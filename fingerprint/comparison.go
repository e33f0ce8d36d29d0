package fingerprint

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/sonido-dedup/fingerprint/config"
	"github.com/RyanBlaney/sonido-dedup/logging"
)

// SimilarityResult is the scored and classified comparison of an ordered pair
// of asset records. Results are returned in memory; persistence is a
// collaborator concern.
type SimilarityResult struct {
	AssetID1     string   `json:"asset_id_1"`
	AssetID2     string   `json:"asset_id_2"`
	Similarity   float64  `json:"similarity"` // 0.0-1.0
	OverlapRatio float64  `json:"overlap_ratio"`
	Category     Category `json:"category"`
	Format1      string   `json:"format_1,omitempty"`
	Format2      string   `json:"format_2,omitempty"`
	DurationDiff float64  `json:"duration_diff"` // seconds
	SameAsset    bool     `json:"same_asset"`
}

// Comparator handles pairwise comparison of asset records
type Comparator struct {
	cfg        *config.DetectionConfig
	classifier *Classifier
	logger     logging.Logger
}

// NewComparator creates a new comparator. A nil config selects the defaults.
func NewComparator(cfg *config.DetectionConfig) *Comparator {
	if cfg == nil {
		cfg = config.DefaultDetectionConfig()
	}

	return &Comparator{
		cfg:        cfg,
		classifier: NewClassifier(cfg),
		logger: logging.WithFields(logging.Fields{
			"component": "comparator",
		}),
	}
}

// Compare scores and classifies a pair of records. The result pair is ordered
// by asset identifier so that Compare(a, b) and Compare(b, a) produce the same
// SimilarityResult.
func (c *Comparator) Compare(a, b *AssetRecord) (*SimilarityResult, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("fingerprint: records cannot be nil")
	}

	if b.AssetID < a.AssetID {
		a, b = b, a
	}

	score, err := Score(a.Fingerprint, b.Fingerprint)
	if err != nil {
		return nil, err
	}

	result := &SimilarityResult{
		AssetID1:     a.AssetID,
		AssetID2:     b.AssetID,
		Similarity:   score.Similarity,
		OverlapRatio: score.OverlapRatio,
		Category:     c.classifier.ClassifyPair(score.Similarity, score.OverlapRatio, a.Format, b.Format),
		Format1:      a.Format,
		Format2:      b.Format,
		DurationDiff: math.Abs(a.Duration - b.Duration),
		SameAsset:    a.AssetID == b.AssetID,
	}

	c.logger.Debug("Compared fingerprints", logging.Fields{
		"asset_id_1":    result.AssetID1,
		"asset_id_2":    result.AssetID2,
		"similarity":    result.Similarity,
		"overlap_ratio": result.OverlapRatio,
		"category":      result.Category,
	})

	return result, nil
}

// Classifier exposes the comparator's classification policy
func (c *Comparator) Classifier() *Classifier {
	return c.classifier
}

// SimilarityStatistics calculates summary statistics over a set of similarity
// results
func SimilarityStatistics(results []*SimilarityResult) map[string]float64 {
	if len(results) == 0 {
		return map[string]float64{}
	}

	similarities := make([]float64, len(results))
	overlaps := make([]float64, len(results))
	for i, result := range results {
		similarities[i] = result.Similarity
		overlaps[i] = result.OverlapRatio
	}

	sorted := make([]float64, len(similarities))
	copy(sorted, similarities)
	sort.Float64s(sorted)

	return map[string]float64{
		"similarity_mean":   stat.Mean(similarities, nil),
		"similarity_min":    sorted[0],
		"similarity_max":    sorted[len(sorted)-1],
		"similarity_median": stat.Quantile(0.5, stat.Empirical, sorted, nil),
		"similarity_std":    math.Sqrt(stat.Variance(similarities, nil)),
		"overlap_mean":      stat.Mean(overlaps, nil),
		"total_comparisons": float64(len(results)),
	}
}
