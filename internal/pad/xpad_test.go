package pad

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bendahl/uinput"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGamepad records kernel-device calls so tests can assert exactly what
// reaches the virtual controller.
type fakeGamepad struct {
	ops     []string
	axisErr error
}

func (f *fakeGamepad) ButtonDown(key int) error {
	f.ops = append(f.ops, fmt.Sprintf("down=%d", key))
	return nil
}

func (f *fakeGamepad) ButtonUp(key int) error {
	f.ops = append(f.ops, fmt.Sprintf("up=%d", key))
	return nil
}

func (f *fakeGamepad) RightStickMoveY(value float32) error {
	if f.axisErr != nil {
		return f.axisErr
	}
	f.ops = append(f.ops, fmt.Sprintf("axis=%.4f", value))
	return nil
}

func (f *fakeGamepad) Close() error {
	f.ops = append(f.ops, "close")
	return nil
}

func TestXPad_TriggerRidesRightStickAxis(t *testing.T) {
	// GOAL: Verify trigger values land on the right stick's Y axis,
	// normalized to the 0..1 deflection range uinput expects.
	dev := &fakeGamepad{}
	x := newXPad(dev)

	require.NoError(t, x.SetTrigger(255))
	require.NoError(t, x.Commit())
	require.NoError(t, x.SetTrigger(63))
	require.NoError(t, x.Commit())

	assert.Equal(t, []string{"axis=1.0000", fmt.Sprintf("axis=%.4f", float32(63)/255)}, dev.ops)
}

func TestXPad_CommitSkipsRedundantWrites(t *testing.T) {
	// GOAL: Re-staging an unchanged trigger or button state must not reach
	// the kernel device again.
	dev := &fakeGamepad{}
	x := newXPad(dev)

	require.NoError(t, x.SetTrigger(120))
	require.NoError(t, x.SetButton(ButtonA, true))
	require.NoError(t, x.Commit())

	require.NoError(t, x.SetTrigger(120))
	require.NoError(t, x.SetButton(ButtonA, true))
	require.NoError(t, x.Commit())

	assert.Equal(t, []string{"axis=0.4706", fmt.Sprintf("down=%d", uinput.ButtonSouth)}, dev.ops)
}

func TestXPad_ButtonsMapToGamepadKeycodes(t *testing.T) {
	// GOAL: Verify each logical button translates to the matching uinput
	// keycode on press and release.
	dev := &fakeGamepad{}
	x := newXPad(dev)

	require.NoError(t, x.SetButton(ButtonDpadLeft, true))
	require.NoError(t, x.Commit())
	require.NoError(t, x.SetButton(ButtonDpadLeft, false))
	require.NoError(t, x.Commit())
	require.NoError(t, x.SetButton(ButtonDpadRight, true))
	require.NoError(t, x.Commit())

	assert.Equal(t, []string{
		fmt.Sprintf("down=%d", uinput.ButtonDpadLeft),
		fmt.Sprintf("up=%d", uinput.ButtonDpadLeft),
		fmt.Sprintf("down=%d", uinput.ButtonDpadRight),
	}, dev.ops)
}

func TestXPad_AxisErrorKeepsTriggerStaged(t *testing.T) {
	// GOAL: A failed axis write must surface the error and leave the value
	// pending so the next Commit retries it.
	dev := &fakeGamepad{axisErr: errors.New("device gone")}
	x := newXPad(dev)

	require.NoError(t, x.SetTrigger(200))
	err := x.Commit()
	require.ErrorContains(t, err, "trigger axis")

	dev.axisErr = nil
	require.NoError(t, x.Commit())
	assert.Equal(t, []string{fmt.Sprintf("axis=%.4f", float32(200)/255)}, dev.ops)
}
