package display

import (
	"fmt"
	"math"

	"github.com/fatih/color"
)

// Percent maps a score to 0..100. Scores up to 1 are fractions, larger
// ones are already percentages. NaN and infinities have no percentage.
func Percent(score float64) (float64, bool) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, false
	}
	if score <= 1 {
		return math.Max(0, math.Min(1, score)) * 100, true
	}
	return math.Min(100, score), true
}

// NoScore is the score of a highlight without a confidence value. It has
// no percentage, so it renders in the neutral colors.
func NoScore() float64 {
	return math.NaN()
}

// HSLA is a CSS-style color.
type HSLA struct {
	H, S, L, A float64
}

func (c HSLA) String() string {
	return fmt.Sprintf("hsla(%g, %g%%, %g%%, %g)", round2(c.H), round2(c.S), round2(c.L), c.A)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var (
	neutralFill   = HSLA{H: 210, S: 8, L: 70, A: 0.35}
	neutralStroke = HSLA{H: 210, S: 8, L: 45, A: 0.6}
	softRedFill   = HSLA{H: 0, S: 85, L: 60, A: 0.65}
	softRedStroke = HSLA{H: 0, S: 80, L: 45, A: 0.80}
)

// rampPosition is where a score of at least 50% sits on the red to green
// ramp, with a slight gamma so mid-range scores stay readable.
func rampPosition(pct float64) float64 {
	return math.Pow((pct-50)/50, 0.8)
}

// ConfidenceColor is the highlight fill for a score. Below 50% every score
// gets the same soft red; from 50% the hue ramps from red to green.
func ConfidenceColor(score float64) HSLA {
	pct, ok := Percent(score)
	switch {
	case !ok:
		return neutralFill
	case pct < 50:
		return softRedFill
	}
	g := rampPosition(pct)
	return HSLA{H: 120 * g, S: 95, L: 45 - 10*g, A: 0.85}
}

// ConfidenceStroke is the darker outline matching ConfidenceColor.
func ConfidenceStroke(score float64) HSLA {
	pct, ok := Percent(score)
	switch {
	case !ok:
		return neutralStroke
	case pct < 50:
		return softRedStroke
	}
	g := rampPosition(pct)
	return HSLA{H: 120 * g, S: 90, L: 30 - 8*g, A: 0.85}
}

// ConfidenceAttribute picks the terminal color nearest the ramp hue.
func ConfidenceAttribute(score float64) color.Attribute {
	if _, ok := Percent(score); !ok {
		return color.FgHiBlack
	}
	switch h := ConfidenceColor(score).H; {
	case h < 40:
		return color.FgRed
	case h < 90:
		return color.FgYellow
	default:
		return color.FgGreen
	}
}

// ConfidenceLevel buckets a score as HIGH, MEDIUM or LOW.
func ConfidenceLevel(score float64) string {
	pct, ok := Percent(score)
	switch {
	case !ok:
		return "NONE"
	case pct >= 90:
		return "HIGH"
	case pct >= 60:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
