package matcher

// Config holds the tier tolerances. Values are run-level configuration;
// the defaults mirror what the accounting team has been operating with.
type Config struct {
	// Tier confidences.
	DocumentConfidence  float64 // tier 1
	ValueDateConfidence float64 // tier 2
	ValueDescConfidence float64 // tier 3

	// Tier 2: amount tolerance is max(ValueDateTolMin, ValueDateTolRatio*|amount|).
	ValueDateTolMin   float64
	ValueDateTolRatio float64
	DateToleranceDays int

	// Tier 3: absolute amount tolerance plus description similarity.
	ValueDescTolerance float64
	MinTokenLen        int // shared tokens must be longer than this
	MinSubstringLen    int // substring containment needs at least this many chars
}

// DefaultConfig returns the standard tier tolerances.
func DefaultConfig() Config {
	return Config{
		DocumentConfidence:  0.95,
		ValueDateConfidence: 0.85,
		ValueDescConfidence: 0.75,
		ValueDateTolMin:     0.10,
		ValueDateTolRatio:   0.001,
		DateToleranceDays:   5,
		ValueDescTolerance:  0.05,
		MinTokenLen:         3,
		MinSubstringLen:     5,
	}
}
