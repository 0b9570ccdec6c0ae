package display

import (
	"math"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
		ok   bool
	}{
		{0.5, 50, true},
		{1, 100, true},
		{-0.2, 0, true},
		{73, 73, true},
		{250, 100, true},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
	}
	for _, tt := range tests {
		got, ok := Percent(tt.in)
		assert.Equal(t, tt.ok, ok, "Percent(%v)", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "Percent(%v)", tt.in)
	}
}

func TestConfidenceColor_Ramp(t *testing.T) {
	assert.Equal(t, softRedFill, ConfidenceColor(0.1))
	assert.Equal(t, softRedFill, ConfidenceColor(0.49))
	assert.Equal(t, neutralFill, ConfidenceColor(NoScore()))

	low := ConfidenceColor(0.5)
	assert.Equal(t, 0.0, low.H)
	assert.Equal(t, 45.0, low.L)

	high := ConfidenceColor(1)
	assert.Equal(t, 120.0, high.H)
	assert.Equal(t, 35.0, high.L)

	// hue rises monotonically through the ramp
	prev := -1.0
	for s := 0.5; s <= 1.0; s += 0.05 {
		h := ConfidenceColor(s).H
		assert.Greater(t, h, prev)
		prev = h
	}
}

func TestConfidenceStroke(t *testing.T) {
	assert.Equal(t, softRedStroke, ConfidenceStroke(0.2))
	assert.Equal(t, neutralStroke, ConfidenceStroke(NoScore()))
	assert.Equal(t, 22.0, ConfidenceStroke(1).L)
	assert.Equal(t, "hsla(120, 90%, 22%, 0.85)", ConfidenceStroke(1).String())
}

func TestConfidenceAttribute(t *testing.T) {
	assert.Equal(t, color.FgRed, ConfidenceAttribute(0.3))
	assert.Equal(t, color.FgYellow, ConfidenceAttribute(0.75))
	assert.Equal(t, color.FgGreen, ConfidenceAttribute(1))
	assert.Equal(t, color.FgHiBlack, ConfidenceAttribute(NoScore()))
}

func TestConfidenceLevel(t *testing.T) {
	assert.Equal(t, "HIGH", ConfidenceLevel(0.95))
	assert.Equal(t, "MEDIUM", ConfidenceLevel(0.6))
	assert.Equal(t, "LOW", ConfidenceLevel(0.2))
	assert.Equal(t, "NONE", ConfidenceLevel(NoScore()))
}
