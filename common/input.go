package common

import "github.com/fzracing/fz/wire"

// Input message IDs.
const (
	InputEventID   = "engine.input_event"
	GamepadStateID = "engine.gamepad_state"
)

// KeyCode names a keyboard key.
type KeyCode string

const (
	KeyW KeyCode = "w"
	KeyA KeyCode = "a"
	KeyS KeyCode = "s"
	KeyD KeyCode = "d"
	KeyR KeyCode = "r"
)

// InputEvent is a single keyboard event from the host window.
type InputEvent struct {
	Key     KeyCode `json:"key"`
	Pressed bool    `json:"pressed"`
}

func (InputEvent) MessageID() string { return InputEventID }

func (InputEvent) Locality() wire.DestinationKind { return wire.DestLocal }

// Axis names a gamepad analog axis.
type Axis string

const (
	AxisLeftStickX  Axis = "left_stick_x"
	AxisLeftStickY  Axis = "left_stick_y"
	AxisRightStickX Axis = "right_stick_x"
	AxisRightStickY Axis = "right_stick_y"
)

// Button names a gamepad button.
type Button string

const (
	ButtonLeftTrigger2  Button = "left_trigger_2"
	ButtonRightTrigger2 Button = "right_trigger_2"
)

// Gamepad is the sampled state of one controller.
type Gamepad struct {
	Axes    map[Axis]float32 `json:"axes"`
	Buttons map[Button]bool  `json:"buttons"`
}

// AxisValue returns an axis value, zero when absent.
func (g Gamepad) AxisValue(a Axis) float32 { return g.Axes[a] }

// Held returns whether a button is held, false when absent.
func (g Gamepad) Held(b Button) bool { return g.Buttons[b] }

// GamepadState carries the state of every connected controller for a tick.
type GamepadState struct {
	Gamepads []Gamepad `json:"gamepads"`
}

func (GamepadState) MessageID() string { return GamepadStateID }

func (GamepadState) Locality() wire.DestinationKind { return wire.DestLocal }

// InputHelper tracks key held state across InputEvent streams, mirroring
// the host's edge-triggered events into level-triggered queries.
type InputHelper struct {
	held map[KeyCode]bool
}

// NewInputHelper returns an empty helper.
func NewInputHelper() *InputHelper {
	return &InputHelper{held: make(map[KeyCode]bool)}
}

// HandleEvent folds one event into the held-key state.
func (h *InputHelper) HandleEvent(ev InputEvent) {
	if ev.Pressed {
		h.held[ev.Key] = true
	} else {
		delete(h.held, ev.Key)
	}
}

// KeyHeld reports whether a key is currently held.
func (h *InputHelper) KeyHeld(k KeyCode) bool { return h.held[k] }
