package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeValid(t *testing.T) {
	known := []EventType{
		EventFocusLost, EventFocusRegained, EventNoFace, EventMultipleFaces,
		EventPhoneDetected, EventBookDetected, EventDeviceDetected,
		EventEyeClosure, EventAudioNoise, EventInterviewStarted, EventInterviewEnded,
	}
	for _, e := range known {
		assert.True(t, e.Valid(), "%s", e)
	}

	assert.False(t, EventType("tab_switched").Valid())
	assert.False(t, EventType("").Valid())
	assert.False(t, EventType("FOCUS_LOST").Valid())
}

func TestEventTypeSuspicious(t *testing.T) {
	suspicious := []EventType{
		EventPhoneDetected, EventBookDetected, EventDeviceDetected,
		EventMultipleFaces, EventEyeClosure, EventAudioNoise,
	}
	for _, e := range suspicious {
		assert.True(t, e.Suspicious(), "%s", e)
	}

	// Focus loss and lifecycle markers carry their own handling and never
	// count against the suspicious tally.
	notSuspicious := []EventType{
		EventFocusLost, EventFocusRegained, EventNoFace,
		EventInterviewStarted, EventInterviewEnded,
	}
	for _, e := range notSuspicious {
		assert.False(t, e.Suspicious(), "%s", e)
	}
}

func TestValidSeverity(t *testing.T) {
	for _, s := range []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		assert.True(t, ValidSeverity(s))
	}
	assert.False(t, ValidSeverity("urgent"))
	assert.False(t, ValidSeverity(""))
}
