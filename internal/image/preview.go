package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/jmylchreest/swatch/internal/colour"
)

// PreviewQuality is the JPEG quality used for previews.
const PreviewQuality = 75

// Preview renders img as a JPEG data URI whose larger side is at most bound.
// Transparent areas are flattened onto white because JPEG has no alpha.
func Preview(img image.Image, bound int) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", colour.ErrInvalidImage
	}

	small := colour.Flatten(colour.Downscale(img, bound), colour.DefaultBackground)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: PreviewQuality}); err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
