package vamana

// Config is the builder surface configuration for an index (spec section 6,
// the in-process construction parameters that mirror the wire CREATE
// command's fields).
type Config struct {
	Dimension      int
	Similarity     Similarity
	M              int     // max neighbors per node
	EfConstruction int     // beam width used while building
	Alpha          float64 // RobustPrune occlusion factor, >= 1.0

	// RerankFactor, when > 1 and a PQ codec is installed, over-fetches
	// RerankFactor*topK PQ-scored candidates and reranks them against raw
	// vectors before truncating (SPEC_FULL section 4).
	RerankFactor int
}

// DefaultConfig returns the conservative defaults the IPC CREATE handler
// falls back to when a CREATE command omits a field.
func DefaultConfig(dimension int, sim Similarity) Config {
	return Config{
		Dimension:      dimension,
		Similarity:     sim,
		M:              32,
		EfConstruction: 64,
		Alpha:          1.2,
		RerankFactor:   4,
	}
}

// Validate reports the spec section 7 InvalidConfig error for any
// out-of-range field.
func (c Config) Validate() error {
	if c.Dimension <= 0 {
		return newErr(KindInvalidConfig, "dimension must be positive")
	}
	if c.M < 2 {
		return newErr(KindInvalidConfig, "M must be at least 2")
	}
	if c.EfConstruction < c.M {
		return newErr(KindInvalidConfig, "EfConstruction must be at least M")
	}
	if c.Alpha < 1.0 {
		return newErr(KindInvalidConfig, "Alpha must be at least 1.0")
	}
	return nil
}
