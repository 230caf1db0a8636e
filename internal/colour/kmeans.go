package colour

import (
	"cmp"
	"crypto/sha256"
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"math/rand"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
)

// KMeansQuantizer implements Quantizer using k-means clustering in RGB space.
//
// Clustering runs over the image's colour histogram, so each distinct colour
// is one weighted point. Centroids are seeded with k-means++ from a seed
// derived from the image content, which keeps results reproducible.
type KMeansQuantizer struct {
	maxIterations int
	convergence   float64
	seed          *int64
}

// NewKMeansQuantizer creates a new KMeansQuantizer with default settings.
func NewKMeansQuantizer() *KMeansQuantizer {
	return &KMeansQuantizer{
		maxIterations: 20,
		convergence:   2.0 / 255.0,
	}
}

// WithSeed fixes the clustering seed instead of deriving it from the image.
func (q *KMeansQuantizer) WithSeed(seed int64) *KMeansQuantizer {
	c := *q
	c.seed = &seed
	return &c
}

// weightedPoint is one histogram bin: a distinct colour and its pixel count.
type weightedPoint struct {
	c colorful.Color
	w float64
}

// Quantize implements Quantizer.
func (q *KMeansQuantizer) Quantize(img *image.RGBA, k int) (*image.Paletted, error) {
	if err := checkQuantizeArgs(img, k); err != nil {
		return nil, err
	}

	hist := histogram(img)
	if len(hist) <= k {
		return remap(img, histogramPalette(hist)), nil
	}

	points := make([]weightedPoint, len(hist))
	for i, h := range hist {
		points[i] = weightedPoint{
			c: colorful.Color{R: float64(h.rgb.R) / 255, G: float64(h.rgb.G) / 255, B: float64(h.rgb.B) / 255},
			w: float64(h.count),
		}
	}

	seed := contentSeed(img)
	if q.seed != nil {
		seed = *q.seed
	}
	// #nosec G404 -- clustering only needs a reproducible stream
	rng := rand.New(rand.NewSource(seed))

	centroids, sizes := q.cluster(points, k, rng)

	palette := make(color.Palette, 0, k)
	seen := make(map[RGB]bool, k)
	for i, c := range centroids {
		if sizes[i] == 0 {
			continue
		}
		r, g, b := c.Clamped().RGB255()
		rgb := RGB{R: r, G: g, B: b}
		if seen[rgb] {
			continue
		}
		seen[rgb] = true
		palette = append(palette, rgb.Color())
	}

	return remap(img, palette), nil
}

type histogramBin struct {
	rgb   RGB
	count int
}

// histogram returns the distinct colours of img ordered by packed RGB value.
func histogram(img *image.RGBA) []histogramBin {
	counts := make(map[RGB]int)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			counts[RGB{R: c.R, G: c.G, B: c.B}]++
		}
	}

	bins := make([]histogramBin, 0, len(counts))
	for rgb, n := range counts {
		bins = append(bins, histogramBin{rgb: rgb, count: n})
	}
	slices.SortFunc(bins, func(a, b histogramBin) int {
		return cmp.Compare(packRGB(a.rgb), packRGB(b.rgb))
	})
	return bins
}

func packRGB(c RGB) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// cluster performs weighted k-means and returns centroids with their pixel weights.
func (q *KMeansQuantizer) cluster(points []weightedPoint, k int, rng *rand.Rand) ([]colorful.Color, []float64) {
	centroids := initCentroids(points, k, rng)
	assignments := make([]int, len(points))
	for i := range assignments {
		assignments[i] = -1
	}

	for range q.maxIterations {
		changed := 0
		for i, p := range points {
			nearest := nearestCentroid(p.c, centroids)
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed++
			}
		}
		if changed == 0 {
			break
		}

		next := recalculateCentroids(points, assignments, centroids, rng)

		movement := 0.0
		for i := range centroids {
			movement += centroids[i].DistanceRgb(next[i])
		}
		centroids = next

		if movement/float64(len(centroids)) < q.convergence {
			for i, p := range points {
				assignments[i] = nearestCentroid(p.c, centroids)
			}
			break
		}
	}

	sizes := make([]float64, len(centroids))
	for i, a := range assignments {
		if a >= 0 {
			sizes[a] += points[i].w
		}
	}
	return centroids, sizes
}

// initCentroids picks k starting centroids with weighted k-means++.
func initCentroids(points []weightedPoint, k int, rng *rand.Rand) []colorful.Color {
	centroids := make([]colorful.Color, 0, k)
	centroids = append(centroids, pickWeighted(points, func(p weightedPoint) float64 { return p.w }, rng).c)

	for len(centroids) < k {
		next, ok := pickWeightedOK(points, func(p weightedPoint) float64 {
			d := p.c.DistanceRgb(centroids[nearestCentroid(p.c, centroids)])
			return p.w * d * d
		}, rng)
		if !ok {
			break
		}
		centroids = append(centroids, next.c)
	}
	return centroids
}

func pickWeighted(points []weightedPoint, weight func(weightedPoint) float64, rng *rand.Rand) weightedPoint {
	p, ok := pickWeightedOK(points, weight, rng)
	if !ok {
		return points[0]
	}
	return p
}

// pickWeightedOK samples a point with probability proportional to weight.
// It reports false when every weight is zero.
func pickWeightedOK(points []weightedPoint, weight func(weightedPoint) float64, rng *rand.Rand) (weightedPoint, bool) {
	weights := make([]float64, len(points))
	total := 0.0
	for i, p := range points {
		weights[i] = weight(p)
		total += weights[i]
	}
	if total == 0 {
		return weightedPoint{}, false
	}

	target := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if cumulative >= target && w > 0 {
			return points[i], true
		}
	}
	return points[len(points)-1], true
}

func nearestCentroid(c colorful.Color, centroids []colorful.Color) int {
	minDist := math.MaxFloat64
	nearest := 0
	for i, centroid := range centroids {
		if d := c.DistanceRgb(centroid); d < minDist {
			minDist = d
			nearest = i
		}
	}
	return nearest
}

// recalculateCentroids moves each centroid to the weighted mean of its points.
// Empty clusters are re-seeded on a random point.
func recalculateCentroids(points []weightedPoint, assignments []int, prev []colorful.Color, rng *rand.Rand) []colorful.Color {
	sums := make([]colorful.Color, len(prev))
	weights := make([]float64, len(prev))
	for i, p := range points {
		a := assignments[i]
		sums[a].R += p.c.R * p.w
		sums[a].G += p.c.G * p.w
		sums[a].B += p.c.B * p.w
		weights[a] += p.w
	}

	next := make([]colorful.Color, len(prev))
	for i := range prev {
		if weights[i] == 0 {
			next[i] = points[rng.Intn(len(points))].c
			continue
		}
		next[i] = colorful.Color{
			R: sums[i].R / weights[i],
			G: sums[i].G / weights[i],
			B: sums[i].B / weights[i],
		}
	}
	return next
}

// contentSeed derives a deterministic seed from the image's dimensions and a pixel grid sample.
func contentSeed(img *image.RGBA) int64 {
	b := img.Bounds()
	hasher := sha256.New()

	dims := make([]byte, 8)
	binary.LittleEndian.PutUint32(dims[0:4], uint32(b.Dx()))
	binary.LittleEndian.PutUint32(dims[4:8], uint32(b.Dy()))
	hasher.Write(dims)

	step := max(b.Dx()/100, b.Dy()/100, 1)
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := img.RGBAAt(x, y)
			hasher.Write([]byte{c.R, c.G, c.B})
		}
	}

	sum := hasher.Sum(nil)
	return int64(binary.LittleEndian.Uint64(sum[:8]))
}
