package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		focusLost  int
		suspicious int
		want       int
	}{
		{"clean session", 0, 0, 100},
		{"focus lost only", 3, 0, 94},
		{"suspicious only", 0, 2, 90},
		{"mixed", 3, 2, 84},
		{"clamped at zero", 40, 10, 0},
		{"far below zero stays zero", 100, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.focusLost, tt.suspicious))
		})
	}
}

func TestScoreBounds(t *testing.T) {
	for f := 0; f <= 60; f += 3 {
		for s := 0; s <= 30; s += 2 {
			got := Score(f, s)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		}
	}
}

func TestScoreMonotonic(t *testing.T) {
	// The score never increases when either counter grows.
	for f := 0; f < 20; f++ {
		for s := 0; s < 20; s++ {
			cur := Score(f, s)
			assert.LessOrEqual(t, Score(f+1, s), cur)
			assert.LessOrEqual(t, Score(f, s+1), cur)
		}
	}
}

func TestScorePanicsOnNegativeCounters(t *testing.T) {
	assert.Panics(t, func() { Score(-1, 0) })
	assert.Panics(t, func() { Score(0, -1) })
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, RiskLow},
		{95, RiskLow},
		{90, RiskLow}, // boundary goes to the higher tier
		{89, RiskMedium},
		{70, RiskMedium},
		{69, RiskHigh},
		{50, RiskHigh},
		{49, RiskCritical},
		{10, RiskCritical},
		{0, RiskCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevel(tt.score), "score=%d", tt.score)
	}
}
