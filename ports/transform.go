package ports

// ProbabilitySpaceTransform converts between physical (x-)space and the
// standardized (u-)space the sampling engine works in.
type ProbabilitySpaceTransform interface {
	// Dimension is the number of uncertain variables
	Dimension() int

	// MarginalPDF is the standardized marginal density of dimension d at u
	MarginalPDF(u float64, d int) float64

	// Bounds is the distribution support mapped into u-space
	Bounds() (lower, upper []float64)

	// ModelBounds is the model's declared variable bounds mapped into u-space
	ModelBounds() (lower, upper []float64)

	// ToPhysical maps a u-space point to physical variables
	ToPhysical(u []float64) ([]float64, error)
}
