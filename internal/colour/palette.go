// Package colour provides dominant colour extraction from images.
package colour

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB represents a color in RGB format.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String returns the RGB color as a string in the format "rgb(r, g, b)".
func (rgb RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", rgb.R, rgb.G, rgb.B)
}

// Hex returns the RGB color as a lowercase hex string (e.g., "#1a2b3c").
func (rgb RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", rgb.R, rgb.G, rgb.B)
}

// ToRGB converts a color.Color to RGB.
// Colours with alpha are un-premultiplied first.
func ToRGB(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: n.R, G: n.G, B: n.B}
}

// ParseHex parses "#rrggbb", "rrggbb" or the short "#rgb" form.
func ParseHex(s string) (RGB, error) {
	s = "#" + strings.TrimPrefix(strings.TrimSpace(s), "#")
	if (len(s) != 4 && len(s) != 7) || strings.ContainsAny(s, " \t") {
		return RGB{}, fmt.Errorf("invalid hex colour %q: expected 3 or 6 hex digits", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGB{R: r, G: g, B: b}, nil
}

// Color returns the RGB value as an opaque color.RGBA.
func (rgb RGB) Color() color.RGBA {
	return color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}
}

// ColorRecord is one ranked dominant colour.
type ColorRecord struct {
	Hex     string  `json:"hex"`
	RGB     RGB     `json:"rgb"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// String returns a human-readable representation of the record.
func (r ColorRecord) String() string {
	return fmt.Sprintf("%s %s %d (%.2f%%)", r.Hex, r.RGB, r.Count, r.Percent)
}

// PaletteJSON represents ranked records in JSON output format.
type PaletteJSON struct {
	Count  int           `json:"count"`
	Colors []ColorRecord `json:"colors"`
}

// RecordsToJSON converts ranked records to indented JSON.
func RecordsToJSON(records []ColorRecord) ([]byte, error) {
	if records == nil {
		records = []ColorRecord{}
	}
	return json.MarshalIndent(PaletteJSON{
		Count:  len(records),
		Colors: records,
	}, "", "  ")
}

// TotalCount returns the sum of pixel counts across records.
func TotalCount(records []ColorRecord) int {
	total := 0
	for _, r := range records {
		total += r.Count
	}
	return total
}
