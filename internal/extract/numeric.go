package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Heuristics are the business constants of the extraction pass. They are
// assumptions about the source reports rather than derived values.
type Heuristics struct {
	// Parsed amounts below ScaleUpBelow are treated as abbreviated thousands
	// and multiplied by ScaleUpFactor.
	ScaleUpBelow  float64
	ScaleUpFactor float64
	// Records at or above OutlierCeiling are dropped as parse errors.
	OutlierCeiling float64
	// ExpectedTotal is the known report total, used only for the logged
	// accuracy ratio.
	ExpectedTotal float64
}

func DefaultHeuristics() Heuristics {
	return Heuristics{
		ScaleUpBelow:   10_000,
		ScaleUpFactor:  1_000,
		OutlierCeiling: 1_000_000_000,
		ExpectedTotal:  2_867_497_901,
	}
}

var (
	nonNumericRe   = regexp.MustCompile(`[^\d,.]`)
	dotThousandsRe = regexp.MustCompile(`^\d{1,3}(\.\d{3})*(,\d{2})?$`)
	quantityRe     = regexp.MustCompile(`^\d{1,3}(?:,\d{3})*(?:\.\d{2})?$`)
	amountTailRe   = regexp.MustCompile(`^[\d.,]+$`)
)

// ParseAmount converts an Indonesian-formatted figure such as "Rp1.234.567"
// or "7.000,50" to a number. Dots are thousands separators and the comma is
// the decimal mark when the text matches that layout; otherwise commas are
// dropped as thousands separators. Unparseable text yields 0.
func (h Heuristics) ParseAmount(text string) float64 {
	clean := nonNumericRe.ReplaceAllString(text, "")

	if dotThousandsRe.MatchString(clean) {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}

	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}

	if value < h.ScaleUpBelow {
		value *= h.ScaleUpFactor
	}
	return value
}
