// Package scoring derives the bounded integrity score and risk level from
// accumulated event counters. All functions are pure; callers persist the
// result onto the candidate record.
package scoring

import "fmt"

const (
	// InitialScore is the score a candidate starts with.
	InitialScore = 100
	// FocusLostPenalty is deducted per focus_lost event.
	FocusLostPenalty = 2
	// SuspiciousPenalty is deducted per suspicious detection event.
	SuspiciousPenalty = 5
)

// Risk levels derived from the integrity score.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Score computes the integrity score for the given counters, clamped to
// [0, 100]. Counters are monotonically non-decreasing, so the score never
// needs an upper re-clamp. Negative inputs indicate a corrupted candidate
// record and are treated as a programming error.
func Score(focusLost, suspicious int) int {
	if focusLost < 0 || suspicious < 0 {
		panic(fmt.Sprintf("scoring: negative counters (focus_lost=%d suspicious=%d)", focusLost, suspicious))
	}
	score := InitialScore - FocusLostPenalty*focusLost - SuspiciousPenalty*suspicious
	if score < 0 {
		score = 0
	}
	return score
}

// RiskLevel classifies an integrity score. Thresholds are inclusive lower
// bounds evaluated from the top: >=90 low, >=70 medium, >=50 high, else
// critical.
func RiskLevel(score int) string {
	switch {
	case score >= 90:
		return RiskLow
	case score >= 70:
		return RiskMedium
	case score >= 50:
		return RiskHigh
	default:
		return RiskCritical
	}
}
