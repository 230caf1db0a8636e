package colour

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

const (
	// AnalysisBound is the largest side, in pixels, of the image that palettes are computed from.
	AnalysisBound = 800

	// PreviewBound is the largest side, in pixels, of rendered previews.
	PreviewBound = 600
)

// Downscale returns an owned copy of img whose larger side is at most bound.
// Aspect ratio is preserved and resampling uses the Catmull-Rom kernel.
// Images already within bound are copied pixel for pixel. The result is
// premultiplied RGBA anchored at (0,0), so transparency survives for Flatten.
// A bound below 1 disables scaling.
func Downscale(img image.Image, bound int) *image.RGBA {
	src := img.Bounds()
	size := fitWithin(src.Dx(), src.Dy(), bound)
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))

	if size.X == src.Dx() && size.Y == src.Dy() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
		return dst
	}

	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}

// fitWithin returns the thumbnail size for a w×h image bounded by bound.
func fitWithin(w, h, bound int) image.Point {
	if bound < 1 || (w <= bound && h <= bound) {
		return image.Pt(w, h)
	}

	if w >= h {
		return image.Pt(bound, scaleSide(h, bound, w))
	}
	return image.Pt(scaleSide(w, bound, h), bound)
}

func scaleSide(side, bound, larger int) int {
	return max(int(math.Round(float64(side)*float64(bound)/float64(larger))), 1)
}
