package colour

import (
	"cmp"
	"image"
	"slices"
)

// rankedEntry is a used palette index and the number of pixels mapped to it.
type rankedEntry struct {
	index int
	count int
}

// rank counts pixels per palette index and returns the k most used entries,
// most frequent first, together with the pixel total over every used entry.
// Entries with equal counts keep ascending palette index order.
func rank(pm *image.Paletted, k int) ([]rankedEntry, int) {
	counts := make([]int, len(pm.Palette))
	b := pm.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := pm.Pix[pm.PixOffset(b.Min.X, y):pm.PixOffset(b.Max.X, y)]
		for _, idx := range row {
			counts[idx]++
		}
	}

	entries := make([]rankedEntry, 0, len(counts))
	total := 0
	for idx, n := range counts {
		if n == 0 {
			continue
		}
		entries = append(entries, rankedEntry{index: idx, count: n})
		total += n
	}

	slices.SortStableFunc(entries, func(a, b rankedEntry) int {
		return cmp.Compare(b.count, a.count)
	})

	if len(entries) > k {
		entries = entries[:k]
	}
	return entries, total
}
