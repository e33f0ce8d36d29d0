package fingerprint

import (
	"strings"

	"github.com/RyanBlaney/sonido-dedup/fingerprint/config"
)

// Category labels the relationship between two compared assets
type Category string

const (
	CategoryIdentical                  Category = "IDENTICAL"
	CategorySameContentDifferentFormat Category = "SAME_CONTENT_DIFFERENT_FORMAT"
	CategoryRelatedVariant             Category = "RELATED_VARIANT"
	CategoryDifferent                  Category = "DIFFERENT"
)

// IsDuplicate reports whether the category merges records into a duplicate
// cluster. Related variants are reported separately, never merged.
func (c Category) IsDuplicate() bool {
	return c == CategoryIdentical || c == CategorySameContentDifferentFormat
}

// Classifier maps a similarity score and comparison context to a Category
type Classifier struct {
	cfg *config.DetectionConfig
}

// NewClassifier creates a classifier with the given thresholds
func NewClassifier(cfg *config.DetectionConfig) *Classifier {
	if cfg == nil {
		cfg = config.DefaultDetectionConfig()
	}
	return &Classifier{cfg: cfg}
}

// Classify maps a score to a category. Band comparisons are inclusive at the
// lower bound: a score of exactly 0.95 is IDENTICAL with default thresholds.
//
// When the overlap ratio falls below the configured minimum, an IDENTICAL
// result is downgraded one band: a short overlap cannot certify full-file
// identity.
func (c *Classifier) Classify(score, overlapRatio float64) Category {
	switch {
	case score >= c.cfg.IdenticalThreshold:
		if c.cfg.DowngradeShortOverlap && overlapRatio < c.cfg.MinOverlapRatio {
			return CategorySameContentDifferentFormat
		}
		return CategoryIdentical
	case score >= c.cfg.SameContentThreshold:
		return CategorySameContentDifferentFormat
	case score >= c.cfg.VariantThreshold:
		return CategoryRelatedVariant
	default:
		return CategoryDifferent
	}
}

// ClassifyPair additionally takes the format tags of both sides. Two assets
// that score in the identical band but carry different format tags are the
// same content in different encodings, not the same file.
func (c *Classifier) ClassifyPair(score, overlapRatio float64, formatA, formatB string) Category {
	category := c.Classify(score, overlapRatio)

	if category == CategoryIdentical && !sameFormat(formatA, formatB) {
		return CategorySameContentDifferentFormat
	}

	return category
}

func sameFormat(a, b string) bool {
	if a == "" || b == "" {
		// Unknown format tags are not evidence of a format difference
		return true
	}
	return strings.EqualFold(a, b)
}
