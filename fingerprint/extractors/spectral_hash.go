// Package extractors computes sub-fingerprints directly from PCM audio. It
// stands in for the external fingerprinting tool when one is not wired in,
// and generates fixtures for tests.
package extractors

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/sonido-dedup/fingerprint"
	"github.com/RyanBlaney/sonido-dedup/logging"
)

const (
	// numBands is the number of log-spaced energy bands; band differences
	// yield the 32 bits of each sub-fingerprint
	numBands = 33

	minBandHz = 300.0
	maxBandHz = 2000.0
)

// SpectralHashExtractor produces one 32-bit sub-fingerprint per analysis
// frame from mono PCM.
//
// Each frame is Hann-windowed, transformed with an FFT, and summarized as 33
// log-spaced band energies between 300 and 2000 Hz. Bit b of a frame is the
// sign of the difference-of-differences between adjacent bands and adjacent
// frames, which is robust to level and equalization changes.
//
// Reference: Haitsma, J., & Kalker, T. (2002). "A Highly Robust Audio
// Fingerprinting System"
type SpectralHashExtractor struct {
	sampleRate int
	windowSize int
	hopSize    int
	bandEdges  []int
	window     []float64
	logger     logging.Logger
}

// NewSpectralHashExtractor creates an extractor for the given sample rate.
// The hop size is derived from the nominal fingerprint frame rate.
func NewSpectralHashExtractor(sampleRate int) (*SpectralHashExtractor, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("extractors: sample rate must be positive, got %d", sampleRate)
	}

	hopSize := int(float64(sampleRate) / fingerprint.FrameRate)
	windowSize := hopSize * 2

	e := &SpectralHashExtractor{
		sampleRate: sampleRate,
		windowSize: windowSize,
		hopSize:    hopSize,
		bandEdges:  bandEdges(sampleRate, windowSize),
		window:     hannWindow(windowSize),
		logger: logging.WithFields(logging.Fields{
			"component": "spectral_hash_extractor",
		}),
	}

	return e, nil
}

// Extract computes the fingerprint of a mono PCM signal. The input must span
// at least two analysis frames; the first frame only seeds the frame-to-frame
// difference and emits no bits.
func (e *SpectralHashExtractor) Extract(pcm []float64) (fingerprint.Fingerprint, error) {
	numFrames := 0
	if len(pcm) >= e.windowSize {
		numFrames = (len(pcm)-e.windowSize)/e.hopSize + 1
	}
	if numFrames < 2 {
		return nil, fmt.Errorf("extractors: audio too short: need at least %d samples, got %d",
			e.windowSize+e.hopSize, len(pcm))
	}

	e.logger.Debug("Extracting spectral hash", logging.Fields{
		"samples":     len(pcm),
		"frames":      numFrames,
		"window_size": e.windowSize,
		"hop_size":    e.hopSize,
	})

	energies := make([][]float64, numFrames)
	for frame := 0; frame < numFrames; frame++ {
		offset := frame * e.hopSize
		energies[frame] = e.bandEnergies(pcm[offset : offset+e.windowSize])
	}

	fp := make(fingerprint.Fingerprint, 0, numFrames-1)
	for frame := 1; frame < numFrames; frame++ {
		var sub uint32
		for b := 0; b < numBands-1; b++ {
			current := energies[frame][b] - energies[frame][b+1]
			previous := energies[frame-1][b] - energies[frame-1][b+1]
			if current-previous > 0 {
				sub |= 1 << uint(b)
			}
		}
		fp = append(fp, sub)
	}

	return fp, nil
}

// bandEnergies windows one frame, transforms it, and sums spectral power per
// band
func (e *SpectralHashExtractor) bandEnergies(frame []float64) []float64 {
	windowed := make([]float64, len(frame))
	for i, sample := range frame {
		windowed[i] = sample * e.window[i]
	}

	spectrum := fft.FFTReal(windowed)

	energies := make([]float64, numBands)
	for b := 0; b < numBands; b++ {
		for bin := e.bandEdges[b]; bin < e.bandEdges[b+1]; bin++ {
			magnitude := cmplx.Abs(spectrum[bin])
			energies[b] += magnitude * magnitude
		}
	}

	return energies
}

// bandEdges maps log-spaced band boundaries between minBandHz and maxBandHz
// onto FFT bin indices, keeping every band at least one bin wide
func bandEdges(sampleRate, windowSize int) []int {
	nyquist := float64(sampleRate) / 2
	high := math.Min(maxBandHz, nyquist)
	low := math.Min(minBandHz, high/2)

	edges := make([]int, numBands+1)
	ratio := math.Log(high/low) / float64(numBands)
	binWidth := float64(sampleRate) / float64(windowSize)

	previous := 0
	for i := range edges {
		hz := low * math.Exp(ratio*float64(i))
		bin := int(hz / binWidth)
		if bin <= previous {
			bin = previous + 1
		}
		edges[i] = bin
		previous = bin
	}

	return edges
}

func hannWindow(size int) []float64 {
	window := make([]float64, size)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}
