package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-dedup/fingerprint"
	"github.com/RyanBlaney/sonido-dedup/fingerprint/config"
	"github.com/RyanBlaney/sonido-dedup/logging"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	m.Run()
}

// testFingerprint builds a deterministic fingerprint of the given frame count
// from a seed word.
func testFingerprint(seed uint32, frames int) fingerprint.Fingerprint {
	fp := make(fingerprint.Fingerprint, frames)
	for i := range fp {
		fp[i] = seed ^ uint32(i)*0x9E3779B9
	}
	return fp
}

// flipBits xors every frame with a mask, lowering similarity by a known amount
func flipBits(fp fingerprint.Fingerprint, mask uint32) fingerprint.Fingerprint {
	out := make(fingerprint.Fingerprint, len(fp))
	for i, w := range fp {
		out[i] = w ^ mask
	}
	return out
}

func newTestDetector(t *testing.T, cfg *config.DetectionConfig) *Detector {
	t.Helper()
	detector, err := NewDetector(cfg)
	require.NoError(t, err)
	return detector
}

func TestNewDetector_InvalidConfig(t *testing.T) {
	cfg := config.DefaultDetectionConfig()
	cfg.IdenticalThreshold = 2.0

	_, err := NewDetector(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestFindDuplicateClusters_EmptyInput(t *testing.T) {
	detector := newTestDetector(t, nil)

	report, err := detector.FindDuplicateClusters(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Clusters)
	assert.Zero(t, report.Comparisons)
	assert.Zero(t, report.RecordsTotal)
}

func TestFindDuplicateClusters_TransitiveCluster(t *testing.T) {
	detector := newTestDetector(t, nil)

	// A-B and B-C are within the 2s tolerance window; A-C is not. The cluster
	// must still contain all three through the shared edges.
	fp := testFingerprint(0xABCD1234, 100)
	records := []fingerprint.AssetRecord{
		{AssetID: "asset-a", Duration: 10.0, Fingerprint: fp},
		{AssetID: "asset-b", Duration: 11.5, Fingerprint: fp},
		{AssetID: "asset-c", Duration: 13.0, Fingerprint: fp},
	}

	report, err := detector.FindDuplicateClusters(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Comparisons, "a-c falls outside the duration window")
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, []string{"asset-a", "asset-b", "asset-c"}, report.Clusters[0].Members)
}

func TestFindDuplicateClusters_DurationPruning(t *testing.T) {
	detector := newTestDetector(t, nil)

	fp := testFingerprint(0x1111, 50)
	records := []fingerprint.AssetRecord{
		{AssetID: "short-1", Duration: 10.0, Fingerprint: fp},
		{AssetID: "short-2", Duration: 10.1, Fingerprint: fp},
		{AssetID: "long", Duration: 50.0, Fingerprint: fp},
	}

	report, err := detector.FindDuplicateClusters(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Comparisons, "the long record is never scored against the short ones")
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, []string{"short-1", "short-2"}, report.Clusters[0].Members)
}

func TestFindDuplicateClusters_EndToEnd(t *testing.T) {
	detector := newTestDetector(t, nil)

	base := testFingerprint(0xDEAD, 200)
	records := []fingerprint.AssetRecord{
		{AssetID: "a", Format: "wav", Duration: 10.0, Fingerprint: base},
		{AssetID: "b", Format: "mp3", Duration: 10.2, Fingerprint: base},
		// ten flipped bits per frame puts similarity at 1 - 10/32, a variant
		{AssetID: "c", Format: "wav", Duration: 10.1, Fingerprint: flipBits(base, 0x3FF)},
		{AssetID: "d", Format: "wav", Duration: 50.0, Fingerprint: base},
	}

	report, err := detector.FindDuplicateClusters(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, report.Clusters, 1)
	assert.Equal(t, []string{"a", "b"}, report.Clusters[0].Members)

	require.Len(t, report.DuplicateEdges, 1)
	edge := report.DuplicateEdges[0]
	assert.Equal(t, "a", edge.AssetID1)
	assert.Equal(t, "b", edge.AssetID2)
	assert.Equal(t, fingerprint.CategorySameContentDifferentFormat, edge.Category)

	assert.Len(t, report.Variants, 2, "c is a variant of both a and b")
	for _, variant := range report.Variants {
		assert.Equal(t, fingerprint.CategoryRelatedVariant, variant.Category)
	}

	assert.InDelta(t, 1.0, report.Summary["similarity_mean"], 1e-12)
}

func TestFindDuplicateClusters_SkipsEmptyFingerprints(t *testing.T) {
	detector := newTestDetector(t, nil)

	fp := testFingerprint(0x7777, 40)
	records := []fingerprint.AssetRecord{
		{AssetID: "a", Duration: 10.0, Fingerprint: fp},
		{AssetID: "broken", Duration: 10.0},
		{AssetID: "b", Duration: 10.5, Fingerprint: fp},
	}

	report, err := detector.FindDuplicateClusters(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 3, report.RecordsTotal)
	assert.Equal(t, 2, report.RecordsCompared)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "broken", report.Skipped[0].AssetID)

	require.Len(t, report.Clusters, 1)
	assert.Equal(t, []string{"a", "b"}, report.Clusters[0].Members)
}

func TestFindDuplicateClusters_SameFileKeySkipped(t *testing.T) {
	detector := newTestDetector(t, nil)

	fp := testFingerprint(0x4242, 40)
	records := []fingerprint.AssetRecord{
		{AssetID: "a", FileKey: "audio/one.wav", Duration: 10.0, Fingerprint: fp},
		{AssetID: "b", FileKey: "audio/one.wav", Duration: 10.0, Fingerprint: fp},
	}

	report, err := detector.FindDuplicateClusters(context.Background(), records)
	require.NoError(t, err)
	assert.Zero(t, report.Comparisons, "two references to the same stored file are not duplicates of each other")
	assert.Empty(t, report.Clusters)
}

func TestFindDuplicateClusters_CancelledContext(t *testing.T) {
	detector := newTestDetector(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fp := testFingerprint(0x5555, 40)
	records := []fingerprint.AssetRecord{
		{AssetID: "a", Duration: 10.0, Fingerprint: fp},
		{AssetID: "b", Duration: 10.0, Fingerprint: fp},
	}

	report, err := detector.FindDuplicateClusters(ctx, records)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report, "a cancelled batch yields no partial report")
}

func TestFindDuplicateClusters_Deterministic(t *testing.T) {
	cfg := config.DefaultDetectionConfig()
	cfg.MaxWorkers = 8
	detector := newTestDetector(t, cfg)

	fp := testFingerprint(0x9999, 60)
	records := make([]fingerprint.AssetRecord, 0, 20)
	for i := 0; i < 20; i++ {
		records = append(records, fingerprint.AssetRecord{
			AssetID:     string(rune('a' + i)),
			Duration:    10.0 + float64(i%4)*0.1,
			Fingerprint: fp,
		})
	}

	first, err := detector.FindDuplicateClusters(context.Background(), records)
	require.NoError(t, err)
	second, err := detector.FindDuplicateClusters(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, first.Clusters, second.Clusters)
	assert.Equal(t, first.DuplicateEdges, second.DuplicateEdges)
}

func TestFindExactDuplicates(t *testing.T) {
	detector := newTestDetector(t, nil)

	shared := testFingerprint(0xF00D, 30)
	records := []fingerprint.AssetRecord{
		{AssetID: "a", Source: "ingest", Duration: 10, Fingerprint: shared},
		{AssetID: "b", Source: "ingest", Duration: 10, Fingerprint: shared},
		{AssetID: "c", Source: "ingest", Duration: 10, Fingerprint: testFingerprint(0xBEEF, 30)},
		{AssetID: "skip", Source: "ingest", Duration: 10},
	}

	groups := detector.FindExactDuplicates(records)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Members, 2)
	assert.Equal(t, "a", groups[0].Members[0].AssetID)
	assert.Equal(t, "b", groups[0].Members[1].AssetID)
}

func TestFindExactDuplicates_CollapsesSameAsset(t *testing.T) {
	detector := newTestDetector(t, nil)

	shared := testFingerprint(0xF00D, 30)
	records := []fingerprint.AssetRecord{
		{AssetID: "a", Source: "ingest", Format: "wav", Duration: 10, Fingerprint: shared},
		{AssetID: "a", Source: "ingest", Format: "mp3", Duration: 10, Fingerprint: shared},
	}

	groups := detector.FindExactDuplicates(records)
	assert.Empty(t, groups, "format variants of one asset are not an exact duplicate group")
}
