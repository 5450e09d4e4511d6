package importance

import (
	"math"
	"math/rand"

	"goais/domain/core"
	"goais/domain/sampling"

	"gonum.org/v1/gonum/stat/distuv"
)

// Generator draws batches from the mixture of bounded unit normals centered
// at the representative points.
type Generator struct {
	lower []float64
	upper []float64
}

// NewGenerator creates a generator truncating every draw to [lower, upper]
func NewGenerator(lower, upper []float64) (*Generator, error) {
	if len(lower) != len(upper) {
		return nil, core.NewDimensionError("upper bounds", len(upper), len(lower))
	}
	for d := range lower {
		if !(lower[d] < upper[d]) {
			return nil, core.NewConfigError("bounds", "must satisfy lower < upper in every dimension")
		}
	}
	return &Generator{lower: lower, upper: upper}, nil
}

// Bounds returns the truncation bounds
func (g *Generator) Bounds() (lower, upper []float64) {
	return g.lower, g.upper
}

// Apportion splits batchSize across the representative points. Every point
// but the last gets round(weight*batchSize), capped so the running total
// never passes batchSize; the last point absorbs the remainder.
func Apportion(points []sampling.RepresentativePoint, batchSize int) []int {
	counts := make([]int, len(points))
	if len(points) == 0 || batchSize <= 0 {
		return counts
	}
	if len(points) == 1 {
		counts[0] = batchSize
		return counts
	}

	drawn := 0
	last := len(points) - 1
	for i := 0; i < last; i++ {
		n := int(math.Round(points[i].Weight * float64(batchSize)))
		if n < 0 {
			n = 0
		}
		if n > batchSize-drawn {
			n = batchSize - drawn
		}
		counts[i] = n
		drawn += n
	}
	counts[last] = batchSize - drawn
	return counts
}

// Generate draws exactly batchSize samples
func (g *Generator) Generate(rng *rand.Rand, points []sampling.RepresentativePoint, batchSize int) ([]sampling.Sample, error) {
	if len(points) == 0 {
		return nil, core.ErrNoRepresentatives
	}

	counts := Apportion(points, batchSize)
	batch := make([]sampling.Sample, 0, batchSize)
	for i, rp := range points {
		if len(rp.Point) != len(g.lower) {
			return nil, core.NewDimensionError("representative point", len(rp.Point), len(g.lower))
		}
		for n := 0; n < counts[i]; n++ {
			sample := make(sampling.Sample, len(rp.Point))
			for d, mean := range rp.Point {
				sample[d] = truncatedNormal(rng, mean, g.lower[d], g.upper[d])
			}
			batch = append(batch, sample)
		}
	}
	return batch, nil
}

// truncatedNormal draws from N(mean, 1) restricted to [lower, upper] by
// inverting the CDF. Intervals above the mean are inverted through the
// survival function to stay accurate in the upper tail.
func truncatedNormal(rng *rand.Rand, mean, lower, upper float64) float64 {
	a, b := lower-mean, upper-mean
	p := openUniform(rng)

	var z float64
	if a > 0 {
		sa, sb := distuv.UnitNormal.Survival(a), distuv.UnitNormal.Survival(b)
		z = -distuv.UnitNormal.Quantile(sb + p*(sa-sb))
	} else {
		ca, cb := distuv.UnitNormal.CDF(a), distuv.UnitNormal.CDF(b)
		z = distuv.UnitNormal.Quantile(ca + p*(cb-ca))
	}

	x := mean + z
	// Quantile saturates at +-Inf when the interval has no representable mass
	if math.IsInf(x, 0) || math.IsNaN(x) || x < lower || x > upper {
		x = math.Max(lower, math.Min(upper, mean))
	}
	return x
}

// openUniform draws from (0, 1)
func openUniform(rng *rand.Rand) float64 {
	for {
		if p := rng.Float64(); p > 0 {
			return p
		}
	}
}
