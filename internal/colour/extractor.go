package colour

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var (
	// ErrInvalidImage is returned for nil images and images without pixels.
	ErrInvalidImage = errors.New("invalid image: no pixels")

	// ErrInvalidColorCount is returned when the requested colour count is out of range.
	ErrInvalidColorCount = errors.New("invalid colour count")
)

// Extractor defines the interface for dominant colour extraction.
type Extractor interface {
	// Extract returns at most count colours ranked by pixel coverage.
	Extract(img image.Image, count int) ([]ColorRecord, error)
}

// Algorithm represents the palette reduction algorithm.
type Algorithm string

const (
	// AlgorithmMedianCut uses adaptive median cut. This is the default.
	AlgorithmMedianCut Algorithm = "mediancut"

	// AlgorithmKMeans uses k-means clustering in RGB space.
	AlgorithmKMeans Algorithm = "kmeans"
)

// ValidAlgorithms returns a list of valid algorithm names.
func ValidAlgorithms() []Algorithm {
	return []Algorithm{
		AlgorithmMedianCut,
		AlgorithmKMeans,
	}
}

// IsValidAlgorithm checks if the given algorithm name is valid.
func IsValidAlgorithm(alg Algorithm) bool {
	for _, valid := range ValidAlgorithms() {
		if alg == valid {
			return true
		}
	}
	return false
}

// NewQuantizer creates a Quantizer for the specified algorithm.
func NewQuantizer(alg Algorithm) (Quantizer, error) {
	switch alg {
	case AlgorithmMedianCut:
		return NewMedianCutQuantizer(), nil
	case AlgorithmKMeans:
		return NewKMeansQuantizer(), nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s (valid algorithms: %v)", alg, ValidAlgorithms())
	}
}

// ExtractorConfig holds configuration for colour extraction.
type ExtractorConfig struct {
	Algorithm    Algorithm
	ColorCount   int
	MaxDimension int
	Background   color.Color
}

// DefaultExtractorConfig returns the default extractor configuration.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Algorithm:    AlgorithmMedianCut,
		ColorCount:   6,
		MaxDimension: AnalysisBound,
		Background:   DefaultBackground,
	}
}

// Validate validates the extractor configuration.
func (c ExtractorConfig) Validate() error {
	if !IsValidAlgorithm(c.Algorithm) {
		return fmt.Errorf("invalid algorithm: %s", c.Algorithm)
	}
	if c.ColorCount < 1 {
		return fmt.Errorf("color count must be at least 1, got %d", c.ColorCount)
	}
	if c.ColorCount > MaxColorCount {
		return fmt.Errorf("color count too large: %d (maximum: %d)", c.ColorCount, MaxColorCount)
	}
	if c.MaxDimension < 1 {
		return fmt.Errorf("max dimension must be at least 1, got %d", c.MaxDimension)
	}
	return nil
}

// PaletteExtractor runs the extraction pipeline:
// downscale, flatten transparency, quantize, count and rank, format.
//
// A PaletteExtractor holds no mutable state and is safe for concurrent use.
type PaletteExtractor struct {
	quantizer    Quantizer
	maxDimension int
	background   color.Color
}

// NewPaletteExtractor creates a PaletteExtractor from a validated configuration.
func NewPaletteExtractor(cfg ExtractorConfig) (*PaletteExtractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	q, err := NewQuantizer(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	return NewPaletteExtractorWithQuantizer(q, cfg.MaxDimension, cfg.Background), nil
}

// NewPaletteExtractorWithQuantizer creates a PaletteExtractor around a custom Quantizer.
func NewPaletteExtractorWithQuantizer(q Quantizer, maxDimension int, background color.Color) *PaletteExtractor {
	if background == nil {
		background = DefaultBackground
	}
	return &PaletteExtractor{
		quantizer:    q,
		maxDimension: maxDimension,
		background:   background,
	}
}

// Extract implements Extractor.
//
// The image is never modified. Colours are counted on the downscaled image,
// and percentages are relative to every pixel of that image, even when
// fewer colours than exist are returned.
func (e *PaletteExtractor) Extract(img image.Image, count int) ([]ColorRecord, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrInvalidImage
	}
	if count < 1 || count > MaxColorCount {
		return nil, fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidColorCount, count, MaxColorCount)
	}

	working := Downscale(img, e.maxDimension)
	flat := Flatten(working, e.background)

	pm, err := e.quantizer.Quantize(flat, count)
	if err != nil {
		return nil, fmt.Errorf("failed to quantize image: %w", err)
	}

	ranked, total := rank(pm, count)
	return formatRecords(pm.Palette, ranked, total), nil
}

var defaultExtractor = NewPaletteExtractorWithQuantizer(NewMedianCutQuantizer(), AnalysisBound, DefaultBackground)

// ExtractPalette extracts up to count dominant colours from img using the
// default configuration: median cut, 800px analysis bound, white background.
func ExtractPalette(img image.Image, count int) ([]ColorRecord, error) {
	return defaultExtractor.Extract(img, count)
}
