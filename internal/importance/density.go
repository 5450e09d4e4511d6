package importance

import (
	"math"

	"goais/domain/core"
	"goais/domain/sampling"
	"goais/ports"

	"gonum.org/v1/gonum/stat/distuv"
)

// StandardDensity is the product of the standardized marginal densities at u
func StandardDensity(transform ports.ProbabilitySpaceTransform, u sampling.Sample) float64 {
	density := 1.0
	for d, v := range u {
		density *= transform.MarginalPDF(v, d)
	}
	return density
}

// normalMass returns the probability a unit normal assigns to [a, b]. The
// tail side is used when the interval lies above the mean so deep-tail
// intervals keep their precision.
func normalMass(a, b float64) float64 {
	if a > 0 {
		return distuv.UnitNormal.Survival(a) - distuv.UnitNormal.Survival(b)
	}
	return distuv.UnitNormal.CDF(b) - distuv.UnitNormal.CDF(a)
}

// BoundedNormalPDF is the density at x of a normal with unit standard
// deviation centered at mean and truncated to [lower, upper].
func BoundedNormalPDF(x, mean, lower, upper float64) float64 {
	if x < lower || x > upper {
		return 0
	}
	mass := normalMass(lower-mean, upper-mean)
	if mass <= 0 {
		return 0
	}
	return distuv.UnitNormal.Prob(x-mean) / mass
}

// MixtureDensity evaluates the recentered sampling density built from the
// representative points at u.
func MixtureDensity(points []sampling.RepresentativePoint, lower, upper []float64, u sampling.Sample) (float64, error) {
	if len(lower) != len(u) || len(upper) != len(u) {
		return 0, core.NewDimensionError("bounds", len(lower), len(u))
	}

	density := 0.0
	for _, rp := range points {
		if len(rp.Point) != len(u) {
			return 0, core.NewDimensionError("representative point", len(rp.Point), len(u))
		}
		component := rp.Weight
		for d, v := range u {
			component *= BoundedNormalPDF(v, rp.Point[d], lower[d], upper[d])
			if component == 0 {
				break
			}
		}
		density += component
	}
	return density, nil
}

// isUsableDensity rejects densities that would blow up a pdf ratio
func isUsableDensity(density float64) bool {
	return density > MinMixtureDensity && !math.IsInf(density, 0) && !math.IsNaN(density)
}
