// Package detect finds duplicate audio assets in large fingerprint
// collections. Candidate pairs are pruned by duration before any scoring, so
// the cost is O(n·k) for average window size k instead of a full pairwise
// sweep, and duplicate edges are merged transitively with a disjoint-set
// forest.
package detect

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-dedup/fingerprint"
	"github.com/RyanBlaney/sonido-dedup/fingerprint/config"
	"github.com/RyanBlaney/sonido-dedup/logging"
)

// Detector clusters near-duplicate asset records
type Detector struct {
	cfg        *config.DetectionConfig
	comparator *fingerprint.Comparator
	logger     logging.Logger
}

// NewDetector creates a detector. A nil config selects the defaults; an
// invalid config fails here, before any batch work starts.
func NewDetector(cfg *config.DetectionConfig) (*Detector, error) {
	if cfg == nil {
		cfg = config.DefaultDetectionConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Detector{
		cfg:        cfg,
		comparator: fingerprint.NewComparator(cfg),
		logger: logging.WithFields(logging.Fields{
			"component": "duplicate_detector",
		}),
	}, nil
}

// candidatePair indexes two records in the duration-sorted slice
type candidatePair struct {
	i, j int
}

// FindDuplicateClusters scores all candidate pairs within the duration
// tolerance window, classifies them, and merges duplicate edges into
// transitive clusters.
//
// Records with empty fingerprints are excluded and reported in the batch
// report; they never abort the batch. Edge scoring runs on a bounded worker
// pool; the union-find merge runs serially afterwards. Cancelling the context
// aborts the whole batch with an error and no partial report.
func (d *Detector) FindDuplicateClusters(ctx context.Context, records []fingerprint.AssetRecord) (*BatchReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	startTime := time.Now()

	report := &BatchReport{
		Clusters:       []DuplicateCluster{},
		DuplicateEdges: []*fingerprint.SimilarityResult{},
		Variants:       []*fingerprint.SimilarityResult{},
		RecordsTotal:   len(records),
	}

	sorted := make([]*fingerprint.AssetRecord, 0, len(records))
	for i := range records {
		if len(records[i].Fingerprint) == 0 {
			report.Skipped = append(report.Skipped, SkippedRecord{
				AssetID: records[i].AssetID,
				Reason:  fingerprint.ErrEmptyFingerprint.Error(),
			})
			continue
		}
		sorted = append(sorted, &records[i])
	}
	report.RecordsCompared = len(sorted)

	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].Duration != sorted[b].Duration {
			return sorted[a].Duration < sorted[b].Duration
		}
		return sorted[a].AssetID < sorted[b].AssetID
	})

	pairs := d.candidatePairs(sorted)
	report.Comparisons = len(pairs)

	d.logger.Info("Starting duplicate detection", logging.Fields{
		"records":         len(records),
		"comparable":      len(sorted),
		"candidate_pairs": len(pairs),
	})

	results, err := d.scorePairs(ctx, sorted, pairs)
	if err != nil {
		return nil, err
	}

	// Serial merge phase: disjoint-set union is not parallel-safe, and is
	// cheap relative to scoring
	uf := newUnionFind(len(sorted))
	for k, result := range results {
		if result == nil {
			continue
		}
		switch {
		case result.Category.IsDuplicate():
			report.DuplicateEdges = append(report.DuplicateEdges, result)
			uf.union(pairs[k].i, pairs[k].j)
		case result.Category == fingerprint.CategoryRelatedVariant:
			report.Variants = append(report.Variants, result)
		}
	}

	report.Clusters = buildClusters(sorted, uf)
	report.Summary = fingerprint.SimilarityStatistics(report.DuplicateEdges)
	report.ProcessingTime = time.Since(startTime)

	d.logger.Info("Duplicate detection completed", logging.Fields{
		"clusters":        len(report.Clusters),
		"duplicate_edges": len(report.DuplicateEdges),
		"variants":        len(report.Variants),
		"skipped":         len(report.Skipped),
		"comparisons":     report.Comparisons,
		"processing_time": report.ProcessingTime,
	})

	return report, nil
}

// candidatePairs walks the duration-sorted records and emits only pairs whose
// durations lie within the tolerance window. Pairs pointing at the same
// stored file are skipped.
func (d *Detector) candidatePairs(sorted []*fingerprint.AssetRecord) []candidatePair {
	var pairs []candidatePair

	for i := range sorted {
		tolerance := d.cfg.EffectiveTolerance(sorted[i].Duration)
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Duration-sorted[i].Duration > tolerance {
				break
			}
			if sorted[i].FileKey != "" && sorted[i].FileKey == sorted[j].FileKey {
				continue
			}
			pairs = append(pairs, candidatePair{i: i, j: j})
		}
	}

	return pairs
}

// scorePairs computes all candidate comparisons on a bounded worker pool.
// Results land in a slot per pair, so the output order is deterministic
// regardless of scheduling.
func (d *Detector) scorePairs(ctx context.Context, sorted []*fingerprint.AssetRecord, pairs []candidatePair) ([]*fingerprint.SimilarityResult, error) {
	results := make([]*fingerprint.SimilarityResult, len(pairs))
	if len(pairs) == 0 {
		return results, ctx.Err()
	}

	workers := d.cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(pairs) {
		workers = len(pairs)
	}

	indexCh := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range indexCh {
				pair := pairs[k]
				result, err := d.comparator.Compare(sorted[pair.i], sorted[pair.j])
				if err != nil {
					d.logger.Warn("Failed to compare candidate pair", logging.Fields{
						"asset_id_1": sorted[pair.i].AssetID,
						"asset_id_2": sorted[pair.j].AssetID,
						"error":      err.Error(),
					})
					continue
				}
				results[k] = result
			}
		}()
	}

feed:
	for k := range pairs {
		select {
		case <-ctx.Done():
			break feed
		case indexCh <- k:
		}
	}
	close(indexCh)
	wg.Wait()

	// Clustering is all-or-nothing: a cancelled batch yields no partial result
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// buildClusters extracts sets of size >= 2 from the disjoint-set forest,
// sorted for stable output
func buildClusters(sorted []*fingerprint.AssetRecord, uf *unionFind) []DuplicateCluster {
	groups := make(map[int][]string)
	for i, record := range sorted {
		root := uf.find(i)
		groups[root] = append(groups[root], record.AssetID)
	}

	clusters := make([]DuplicateCluster, 0)
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		clusters = append(clusters, DuplicateCluster{Members: members})
	}

	sort.Slice(clusters, func(a, b int) bool {
		return clusters[a].Members[0] < clusters[b].Members[0]
	})

	return clusters
}

// FindExactDuplicates groups records sharing a byte-identical fingerprint.
// Format variations of the same asset from the same source collapse to one
// representative, so each group spans at least two distinct assets. This is a
// cheap pre-pass; FindDuplicateClusters catches near-duplicates too.
func (d *Detector) FindExactDuplicates(records []fingerprint.AssetRecord) []ExactDuplicateGroup {
	byFingerprint := make(map[string][]fingerprint.AssetRecord)
	for _, record := range records {
		if len(record.Fingerprint) == 0 {
			continue
		}
		key := fingerprint.Encode(record.Fingerprint)
		byFingerprint[key] = append(byFingerprint[key], record)
	}

	groups := make([]ExactDuplicateGroup, 0)
	for _, members := range byFingerprint {
		if len(members) < 2 {
			continue
		}

		type assetKey struct {
			id, source string
		}
		seen := make(map[assetKey]bool)
		unique := make([]fingerprint.AssetRecord, 0, len(members))
		for _, member := range members {
			key := assetKey{id: member.AssetID, source: member.Source}
			if seen[key] {
				continue
			}
			seen[key] = true
			unique = append(unique, member)
		}

		if len(unique) < 2 {
			continue
		}

		sort.Slice(unique, func(a, b int) bool {
			return unique[a].AssetID < unique[b].AssetID
		})
		groups = append(groups, ExactDuplicateGroup{Members: unique})
	}

	sort.Slice(groups, func(a, b int) bool {
		return groups[a].Members[0].AssetID < groups[b].Members[0].AssetID
	})

	return groups
}
