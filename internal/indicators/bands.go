package indicators

import "fmt"

// Polarity describes which direction of an indicator's scale is healthy.
type Polarity string

const (
	// HigherIsBetter marks indicators where larger values are healthier.
	HigherIsBetter Polarity = "higher-is-better"
	// LowerIsBetter marks indicators where smaller values are healthier.
	LowerIsBetter Polarity = "lower-is-better"
	// BimodalCentered marks indicators where both extremes are concerning.
	BimodalCentered Polarity = "bimodal-centered"

	// DefaultPolarity applies to indicators missing from the catalog.
	DefaultPolarity = HigherIsBetter
)

// Valid reports whether the polarity has a banding policy.
func (p Polarity) Valid() bool {
	_, ok := bandPolicies[p]
	return ok
}

// Band classifies value under the polarity's banding policy. Unknown polarities use DefaultPolarity.
func (p Polarity) Band(value int) Band {
	policy, ok := bandPolicies[p]
	if !ok {
		policy = bandPolicies[DefaultPolarity]
	}
	for _, step := range policy {
		if value <= step.max {
			return step.band
		}
	}
	return policy[len(policy)-1].band
}

// Band is an ordinal severity tag. Presentation layers map bands to colours or symbols.
type Band string

const (
	BandDepleted Band = "depleted"
	BandStrained Band = "strained"
	BandSteady   Band = "steady"
	BandThriving Band = "thriving"

	BandClear  Band = "clear"
	BandMild   Band = "mild"
	BandHeavy  Band = "heavy"
	BandSevere Band = "severe"

	BandDeepLow     Band = "deep-low"
	BandLow         Band = "low"
	BandEven        Band = "even"
	BandElevated    Band = "elevated"
	BandHigh        Band = "high"
	BandExtremeHigh Band = "extreme-high"
)

var bandSeverity = map[Band]int{
	BandThriving: 0,
	BandSteady:   1,
	BandStrained: 2,
	BandDepleted: 3,

	BandClear:  0,
	BandMild:   1,
	BandHeavy:  2,
	BandSevere: 3,

	BandEven:        0,
	BandElevated:    0,
	BandLow:         1,
	BandHigh:        1,
	BandDeepLow:     2,
	BandExtremeHigh: 2,
}

// Severity returns the band's distance from the calmest band of its policy (0 is calmest).
func (b Band) Severity() int {
	return bandSeverity[b]
}

// String implements fmt.Stringer.
func (b Band) String() string {
	return string(b)
}

type bandStep struct {
	max  int
	band Band
}

// bandPolicies holds the upper bound of each band, ascending. The last step catches everything above.
var bandPolicies = map[Polarity][]bandStep{
	HigherIsBetter: {
		{max: 2, band: BandDepleted},
		{max: 5, band: BandStrained},
		{max: 8, band: BandSteady},
		{max: RangeHigh, band: BandThriving},
	},
	LowerIsBetter: {
		{max: 2, band: BandClear},
		{max: 5, band: BandMild},
		{max: 8, band: BandHeavy},
		{max: RangeHigh, band: BandSevere},
	},
	BimodalCentered: {
		{max: 1, band: BandDeepLow},
		{max: 3, band: BandLow},
		{max: 5, band: BandEven},
		{max: 7, band: BandElevated},
		{max: 9, band: BandHigh},
		{max: RangeHigh, band: BandExtremeHigh},
	},
}

func parsePolarity(raw string) (Polarity, error) {
	p := Polarity(raw)
	if !p.Valid() {
		return "", fmt.Errorf("indicators: unknown polarity %q", raw)
	}
	return p, nil
}
