package fingerprint

import (
	"math/bits"
)

// bitsPerFrame is the width of one sub-fingerprint
const bitsPerFrame = 32

// ScoreResult holds the outcome of a pairwise fingerprint comparison
type ScoreResult struct {
	Similarity   float64 `json:"similarity"`    // 0.0-1.0
	OverlapRatio float64 `json:"overlap_ratio"` // shorter length / longer length
	Frames       int     `json:"frames"`        // aligned frames scored
}

// Score computes the normalized similarity between two fingerprints.
//
// The sequences are aligned over their overlapping length; per aligned frame
// the similarity is 1 - hamming/32, and the overall score is the mean across
// frames. The overlap ratio is exposed alongside the score so the
// classification policy can treat short overlaps as low-confidence.
//
// Score is a pure function of its inputs: symmetric, deterministic, and 1.0
// for any non-empty fingerprint against itself. A zero-length fingerprint on
// either side returns ErrEmptyFingerprint.
func Score(a, b Fingerprint) (*ScoreResult, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyFingerprint
	}

	overlap := min(len(a), len(b))
	longest := max(len(a), len(b))

	differing := 0
	for i := 0; i < overlap; i++ {
		differing += bits.OnesCount32(a[i] ^ b[i])
	}

	return &ScoreResult{
		Similarity:   1.0 - float64(differing)/float64(overlap*bitsPerFrame),
		OverlapRatio: float64(overlap) / float64(longest),
		Frames:       overlap,
	}, nil
}
