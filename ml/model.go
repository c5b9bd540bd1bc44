package ml

// Coefficients is the fitted line price = Theta0 + Theta1*km in raw units.
type Coefficients struct {
	Theta0 float64 `json:"theta0"`
	Theta1 float64 `json:"theta1"`
}

// ParameterStore persists the coefficients between runs.
type ParameterStore interface {
	// Load returns the stored coefficients, creating the defaults if none exist.
	Load() (Coefficients, error)
	// Save overwrites the stored coefficients.
	Save(c Coefficients) error
	// Reset removes the stored coefficients.
	Reset() error
}
