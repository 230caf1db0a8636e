package colour

import (
	"image/color"
	"math"
)

// formatRecords resolves ranked palette indices into ColorRecords.
func formatRecords(palette color.Palette, ranked []rankedEntry, total int) []ColorRecord {
	records := make([]ColorRecord, len(ranked))
	for i, e := range ranked {
		rgb := ToRGB(palette[e.index])
		records[i] = ColorRecord{
			Hex:     rgb.Hex(),
			RGB:     rgb,
			Count:   e.count,
			Percent: RoundPercent(e.count, total),
		}
	}
	return records
}

// RoundPercent returns count/total*100 rounded to two decimal places,
// with halves rounded away from zero. A zero total yields 0.
func RoundPercent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	v := float64(count) / float64(total) * 100
	return math.Round(v*100) / 100
}
