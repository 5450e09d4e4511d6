package transform

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Marginal is a physical-space univariate distribution
type Marginal interface {
	CDF(x float64) float64
	Quantile(p float64) float64
}

// NewMarginal builds a gonum distribution from a kind name and parameters.
//
//	normal      mean, std
//	lognormal   mu, sigma (of the underlying normal)
//	uniform     min, max
//	exponential rate
//	weibull     shape, scale
//	gumbel      location, scale
func NewMarginal(kind string, params map[string]float64) (Marginal, error) {
	get := func(name string) (float64, error) {
		v, ok := params[name]
		if !ok {
			return 0, fmt.Errorf("%s distribution requires parameter %q", kind, name)
		}
		return v, nil
	}
	positive := func(name string) (float64, error) {
		v, err := get(name)
		if err != nil {
			return 0, err
		}
		if !(v > 0) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%s parameter %q must be positive and finite, got %v", kind, name, v)
		}
		return v, nil
	}

	switch strings.ToLower(kind) {
	case "normal", "gaussian":
		mean, err := get("mean")
		if err != nil {
			return nil, err
		}
		std, err := positive("std")
		if err != nil {
			return nil, err
		}
		return distuv.Normal{Mu: mean, Sigma: std}, nil
	case "lognormal":
		mu, err := get("mu")
		if err != nil {
			return nil, err
		}
		sigma, err := positive("sigma")
		if err != nil {
			return nil, err
		}
		return distuv.LogNormal{Mu: mu, Sigma: sigma}, nil
	case "uniform":
		lo, err := get("min")
		if err != nil {
			return nil, err
		}
		hi, err := get("max")
		if err != nil {
			return nil, err
		}
		if !(lo < hi) {
			return nil, fmt.Errorf("uniform distribution requires min < max, got [%v, %v]", lo, hi)
		}
		return distuv.Uniform{Min: lo, Max: hi}, nil
	case "exponential":
		rate, err := positive("rate")
		if err != nil {
			return nil, err
		}
		return distuv.Exponential{Rate: rate}, nil
	case "weibull":
		shape, err := positive("shape")
		if err != nil {
			return nil, err
		}
		scale, err := positive("scale")
		if err != nil {
			return nil, err
		}
		return distuv.Weibull{K: shape, Lambda: scale}, nil
	case "gumbel":
		loc, err := get("location")
		if err != nil {
			return nil, err
		}
		scale, err := positive("scale")
		if err != nil {
			return nil, err
		}
		return distuv.GumbelRight{Mu: loc, Beta: scale}, nil
	default:
		return nil, fmt.Errorf("unsupported distribution %q", kind)
	}
}
