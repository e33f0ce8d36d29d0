// Package fingerprint implements acoustic fingerprint decoding, pairwise
// similarity scoring, and duplicate classification for audio assets.
package fingerprint

// Fingerprint is an ordered sequence of 32-bit sub-fingerprints. Each
// sub-fingerprint is a compressed spectral summary of roughly 1/8 second of
// audio, so the length is proportional to duration. Fingerprints are
// immutable once computed.
type Fingerprint []uint32

// Equal reports whether two fingerprints are identical frame for frame
func (fp Fingerprint) Equal(other Fingerprint) bool {
	if len(fp) != len(other) {
		return false
	}
	for i := range fp {
		if fp[i] != other[i] {
			return false
		}
	}
	return true
}

// AssetRecord is one fingerprinted audio asset. It is created when a
// fingerprint job completes and never mutated afterwards; processing status
// lives with the storage collaborator, not here.
type AssetRecord struct {
	AssetID     string      `json:"asset_id"`
	FileKey     string      `json:"file_key,omitempty"`
	Format      string      `json:"format"`
	Source      string      `json:"source,omitempty"`
	Duration    float64     `json:"duration"` // seconds
	FileSize    int64       `json:"file_size,omitempty"`
	Fingerprint Fingerprint `json:"-"`
}
