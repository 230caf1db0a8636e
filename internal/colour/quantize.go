package colour

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"slices"

	"golang.org/x/image/draw"
)

// MaxColorCount is the largest palette a Quantizer can produce.
const MaxColorCount = 256

// Quantizer reduces an opaque image to an adaptive palette of at most k colours.
//
// The returned paletted image holds the palette and one palette index per
// pixel. When img has k or fewer distinct colours the palette holds exactly
// those colours.
type Quantizer interface {
	Quantize(img *image.RGBA, k int) (*image.Paletted, error)
}

// MedianCutQuantizer chooses the palette by recursive median cut over the
// image's colour histogram. The box with the widest channel range is split
// at its pixel-weighted median until there are k boxes or none can be split.
// Each box is represented by its most frequent colour, so every palette
// entry occurs in the image. Pixels are mapped to their nearest palette
// entry without dithering.
type MedianCutQuantizer struct{}

// NewMedianCutQuantizer creates a MedianCutQuantizer.
func NewMedianCutQuantizer() *MedianCutQuantizer {
	return &MedianCutQuantizer{}
}

// Quantize implements Quantizer.
func (q *MedianCutQuantizer) Quantize(img *image.RGBA, k int) (*image.Paletted, error) {
	if err := checkQuantizeArgs(img, k); err != nil {
		return nil, err
	}

	hist := histogram(img)
	if len(hist) <= k {
		return remap(img, histogramPalette(hist)), nil
	}

	boxes := make([]colourBox, 1, k)
	boxes[0] = newColourBox(hist)
	for len(boxes) < k {
		i := widestBox(boxes)
		if i < 0 {
			break
		}
		lo, hi := boxes[i].split()
		boxes[i] = lo
		boxes = append(boxes, hi)
	}

	palette := make(color.Palette, len(boxes))
	for i, b := range boxes {
		palette[i] = b.mode().Color()
	}
	return remap(img, palette), nil
}

// colourBox is a set of histogram bins and the per-channel bounds enclosing them.
type colourBox struct {
	bins   []histogramBin
	lo, hi [3]uint8
}

func newColourBox(bins []histogramBin) colourBox {
	b := colourBox{bins: bins, lo: [3]uint8{255, 255, 255}}
	for _, bin := range bins {
		ch := channels(bin.rgb)
		for c := range 3 {
			b.lo[c] = min(b.lo[c], ch[c])
			b.hi[c] = max(b.hi[c], ch[c])
		}
	}
	return b
}

func channels(c RGB) [3]uint8 {
	return [3]uint8{c.R, c.G, c.B}
}

// widest returns the channel with the largest range and that range.
func (b colourBox) widest() (int, int) {
	channel, span := 0, 0
	for c := range 3 {
		if s := int(b.hi[c]) - int(b.lo[c]); s > span {
			channel, span = c, s
		}
	}
	return channel, span
}

// split divides the box at the pixel-weighted median of its widest channel.
// Both halves hold at least one bin.
func (b colourBox) split() (colourBox, colourBox) {
	ch, _ := b.widest()
	slices.SortFunc(b.bins, func(x, y histogramBin) int {
		if c := cmp.Compare(channels(x.rgb)[ch], channels(y.rgb)[ch]); c != 0 {
			return c
		}
		return cmp.Compare(packRGB(x.rgb), packRGB(y.rgb))
	})

	total := 0
	for _, bin := range b.bins {
		total += bin.count
	}
	cut, acc := 1, 0
	for i, bin := range b.bins {
		acc += bin.count
		if 2*acc >= total {
			cut = i + 1
			break
		}
	}
	cut = min(max(cut, 1), len(b.bins)-1)

	return newColourBox(b.bins[:cut]), newColourBox(b.bins[cut:])
}

// mode returns the most frequent colour in the box, lowest packed value on ties.
func (b colourBox) mode() RGB {
	best := b.bins[0]
	for _, bin := range b.bins[1:] {
		if bin.count > best.count || (bin.count == best.count && packRGB(bin.rgb) < packRGB(best.rgb)) {
			best = bin
		}
	}
	return best.rgb
}

// widestBox returns the index of the splittable box with the largest channel
// range, or -1 when every box holds a single colour.
func widestBox(boxes []colourBox) int {
	best, bestSpan := -1, 0
	for i, b := range boxes {
		if len(b.bins) < 2 {
			continue
		}
		if _, span := b.widest(); span > bestSpan {
			best, bestSpan = i, span
		}
	}
	return best
}

// histogramPalette returns the histogram's colours as a palette.
func histogramPalette(hist []histogramBin) color.Palette {
	palette := make(color.Palette, len(hist))
	for i, h := range hist {
		palette[i] = h.rgb.Color()
	}
	return palette
}

// remap assigns every pixel of img the index of its nearest palette colour.
func remap(img *image.RGBA, palette color.Palette) *image.Paletted {
	b := img.Bounds()
	pm := image.NewPaletted(b, palette)
	draw.Draw(pm, b, img, b.Min, draw.Src)
	return pm
}

func checkQuantizeArgs(img *image.RGBA, k int) error {
	if img == nil || img.Bounds().Empty() {
		return ErrInvalidImage
	}
	if k < 1 || k > MaxColorCount {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidColorCount, k, MaxColorCount)
	}
	return nil
}
