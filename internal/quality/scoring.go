package quality

// Scoring holds the scoring policy.
type Scoring struct {
	Base float64

	MinLength     int
	ShortPenalty  float64
	MaxLength     int
	LongPenalty   float64
	UnknownFormat float64

	MissingHeading float64
	MissingBold    float64

	InvalidHTMLStructure float64
	MissingHTMLHeading   float64

	InvalidJSONLD float64

	Irrelevant float64
}

// DefaultScoring returns the stock policy.
func DefaultScoring() Scoring {
	return Scoring{
		Base:                 0.8,
		MinLength:            50,
		ShortPenalty:         0.2,
		MaxLength:            5000,
		LongPenalty:          0.1,
		UnknownFormat:        0,
		MissingHeading:       0.3,
		MissingBold:          0.1,
		InvalidHTMLStructure: 0.3,
		MissingHTMLHeading:   0.2,
		InvalidJSONLD:        0.5,
		Irrelevant:           0.2,
	}
}
