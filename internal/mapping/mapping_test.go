package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "trigger", want: ModeTrigger},
		{input: "button", want: ModeButton},
		{input: "", wantErr: true},
		{input: "Trigger", wantErr: true},
		{input: "analog", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := ParseMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestLinearTrigger_Ratio(t *testing.T) {
	// GOAL: Verify the linear policy cuts off below the threshold and clamps at FTP
	m := LinearTrigger{FTP: 250, Threshold: 10}

	tests := []struct {
		name  string
		watts int
		want  float64
	}{
		{name: "zero power", watts: 0, want: 0},
		{name: "below threshold", watts: 5, want: 0},
		{name: "just below threshold", watts: 9, want: 0},
		{name: "half FTP", watts: 125, want: 0.5},
		{name: "at FTP", watts: 250, want: 1.0},
		{name: "above FTP clamps", watts: 300, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, m.Ratio(tt.watts), 1e-9)
		})
	}
}

func TestLinearTrigger_NegativePowerStaysAtZero(t *testing.T) {
	// A decoder fault or a trainer calibration glitch can yield negative watts;
	// the axis must never underflow.
	m := LinearTrigger{FTP: 200, Threshold: 0}
	assert.InDelta(t, 0.0, m.Ratio(-50), 1e-9)
	assert.Equal(t, uint8(0), m.Level(-50))
}

func TestLinearTrigger_Level(t *testing.T) {
	m := LinearTrigger{FTP: 200, Threshold: 10}

	tests := []struct {
		watts int
		want  uint8
	}{
		{watts: 0, want: 0},
		{watts: 50, want: 63},   // 0.25 * 255, truncated
		{watts: 150, want: 191}, // 0.75 * 255, truncated
		{watts: 250, want: 255}, // clamped to full scale
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Level(tt.watts), "watts=%d", tt.watts)
	}
}

func TestThresholdButton_EdgeTriggered(t *testing.T) {
	// GOAL: Verify the latch emits a command only on threshold crossings
	//
	// TEST SCENARIO: samples [40, 60, 60, 30, 70] with threshold 50 must
	// produce exactly three transitions: press, release, press.
	m := &ThresholdButton{Threshold: 50}

	type step struct {
		watts       int
		wantPressed bool
		wantChanged bool
	}
	steps := []step{
		{watts: 40, wantPressed: false, wantChanged: false},
		{watts: 60, wantPressed: true, wantChanged: true},
		{watts: 60, wantPressed: true, wantChanged: false},
		{watts: 30, wantPressed: false, wantChanged: true},
		{watts: 70, wantPressed: true, wantChanged: true},
	}

	changes := 0
	for i, s := range steps {
		pressed, changed := m.Transition(s.watts)
		assert.Equal(t, s.wantPressed, pressed, "step %d (%d W): pressed", i+1, s.watts)
		assert.Equal(t, s.wantChanged, changed, "step %d (%d W): changed", i+1, s.watts)
		if changed {
			changes++
		}
	}
	assert.Equal(t, 3, changes, "exactly three actuation commands must be emitted")
}

func TestThresholdButton_Idempotent(t *testing.T) {
	// Feeding the identical sample twice must never emit a second command.
	m := &ThresholdButton{Threshold: 50}

	_, changed := m.Transition(80)
	require.True(t, changed)
	_, changed = m.Transition(80)
	assert.False(t, changed)

	_, changed = m.Transition(10)
	require.True(t, changed)
	_, changed = m.Transition(10)
	assert.False(t, changed)
}

func TestThresholdButton_ExactThresholdPresses(t *testing.T) {
	m := &ThresholdButton{Threshold: 50}

	pressed, changed := m.Transition(50)
	assert.True(t, pressed, "P == T counts as pressed")
	assert.True(t, changed)
}
