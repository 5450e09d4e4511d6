package transform

import (
	"fmt"
	"math"

	"goais/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// Variable is one uncertain input with optional model bounds in physical
// space. Unset bounds are infinite.
type Variable struct {
	Name     string
	Marginal Marginal
	Lower    float64
	Upper    float64
}

// NewVariable creates an unbounded variable
func NewVariable(name string, m Marginal) Variable {
	return Variable{Name: name, Marginal: m, Lower: math.Inf(-1), Upper: math.Inf(1)}
}

// Independent maps independent marginals onto standard normal u-space with
// u = Φ⁻¹(F(x)).
type Independent struct {
	vars []Variable
}

// NewIndependent creates a transform over the given variables
func NewIndependent(vars ...Variable) (*Independent, error) {
	if len(vars) == 0 {
		return nil, core.NewConfigError("variables", "must not be empty")
	}
	for i, v := range vars {
		if v.Marginal == nil {
			return nil, core.NewConfigError(fmt.Sprintf("variable %d (%s)", i, v.Name), "has no distribution")
		}
		if !(v.Lower < v.Upper) {
			return nil, core.NewConfigError(fmt.Sprintf("variable %d (%s)", i, v.Name), "bounds must satisfy lower < upper")
		}
	}
	return &Independent{vars: vars}, nil
}

// StandardNormal is the identity transform over n standard normal variables
func StandardNormal(n int) *Independent {
	vars := make([]Variable, n)
	for i := range vars {
		vars[i] = NewVariable(fmt.Sprintf("u%d", i+1), distuv.UnitNormal)
	}
	return &Independent{vars: vars}
}

// Dimension is the number of uncertain variables
func (t *Independent) Dimension() int { return len(t.vars) }

// Names returns the variable names in order
func (t *Independent) Names() []string {
	names := make([]string, len(t.vars))
	for i, v := range t.vars {
		names[i] = v.Name
	}
	return names
}

// MarginalPDF is the standard normal density; every u-space marginal is N(0,1)
func (t *Independent) MarginalPDF(u float64, d int) float64 {
	return distuv.UnitNormal.Prob(u)
}

// Bounds is the distribution support in u-space, which the transform maps
// onto the whole real line.
func (t *Independent) Bounds() (lower, upper []float64) {
	lower = make([]float64, len(t.vars))
	upper = make([]float64, len(t.vars))
	for i := range t.vars {
		lower[i], upper[i] = math.Inf(-1), math.Inf(1)
	}
	return lower, upper
}

// ModelBounds maps each variable's declared bounds into u-space
func (t *Independent) ModelBounds() (lower, upper []float64) {
	lower = make([]float64, len(t.vars))
	upper = make([]float64, len(t.vars))
	for i, v := range t.vars {
		lower[i] = t.toStandard(v, v.Lower)
		upper[i] = t.toStandard(v, v.Upper)
	}
	return lower, upper
}

func (t *Independent) toStandard(v Variable, x float64) float64 {
	if math.IsInf(x, 0) {
		return x
	}
	return distuv.UnitNormal.Quantile(v.Marginal.CDF(x))
}

// ToStandard maps a physical point into u-space
func (t *Independent) ToStandard(x []float64) ([]float64, error) {
	if len(x) != len(t.vars) {
		return nil, core.NewDimensionError("physical point", len(x), len(t.vars))
	}
	u := make([]float64, len(x))
	for i, v := range t.vars {
		u[i] = t.toStandard(v, x[i])
	}
	return u, nil
}

// ToPhysical maps a u-space point to physical variables
func (t *Independent) ToPhysical(u []float64) ([]float64, error) {
	if len(u) != len(t.vars) {
		return nil, core.NewDimensionError("u-space point", len(u), len(t.vars))
	}
	x := make([]float64, len(u))
	for i, v := range t.vars {
		x[i] = v.Marginal.Quantile(distuv.UnitNormal.CDF(u[i]))
		if math.IsNaN(x[i]) {
			return nil, fmt.Errorf("variable %s: no physical value for u=%v", v.Name, u[i])
		}
	}
	return x, nil
}
