package colour

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// DefaultBackground is the colour transparent pixels are composited onto.
var DefaultBackground color.Color = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Flatten returns an opaque copy of img anchored at (0,0).
//
// Images that report themselves opaque are converted without blending.
// Everything else is composited over a solid background canvas, so each
// output pixel is src·α + background·(1−α). Transparent palette entries
// have α = 0 and come out as the background. A nil background means
// DefaultBackground. The background is un-premultiplied and used fully opaque.
func Flatten(img image.Image, background color.Color) *image.RGBA {
	src := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
		return dst
	}

	if background == nil {
		background = DefaultBackground
	}
	canvas := image.NewUniform(ToRGB(background).Color())
	draw.Draw(dst, dst.Bounds(), canvas, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Over)
	return dst
}
