package core

// Key code definitions
type KeyCode uint16

const (
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_SHIFT     KeyCode = 0x10
	KEY_PAUSE     KeyCode = 0x13
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_END       KeyCode = 0x23
	KEY_HOME      KeyCode = 0x24
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_INSERT    KeyCode = 0x2D
	KEY_DELETE    KeyCode = 0x2E
	KEY_A         KeyCode = 0x41
	KEY_D         KeyCode = 0x44
	KEY_R         KeyCode = 0x52
	KEY_S         KeyCode = 0x53
	KEY_W         KeyCode = 0x57
	KEY_F1        KeyCode = 0x70
	KEY_F5        KeyCode = 0x74
	KEY_LSHIFT    KeyCode = 0xA0
	KEY_RSHIFT    KeyCode = 0xA1
	KEY_LCONTROL  KeyCode = 0xA2
	KEY_RCONTROL  KeyCode = 0xA3
	KEYS_MAX_KEYS KeyCode = 0xFF
)

// Keyboard state structure
type KeyboardState struct {
	Keys [256]bool
}

// Input state structure that holds current and previous states for keyboard
type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState

	events *EventSystem
}

func NewInputState(events *EventSystem) *InputState {
	return &InputState{events: events}
}

// Update copies the current state to the previous one. Call it once at the end of a frame.
func (s *InputState) Update() {
	s.KeyboardPrevious = s.KeyboardCurrent
}

func (s *InputState) IsKeyDown(key KeyCode) bool {
	return s.KeyboardCurrent.Keys[key&0xFF]
}

func (s *InputState) IsKeyUp(key KeyCode) bool {
	return !s.KeyboardCurrent.Keys[key&0xFF]
}

func (s *InputState) WasKeyDown(key KeyCode) bool {
	return s.KeyboardPrevious.Keys[key&0xFF]
}

func (s *InputState) WasKeyUp(key KeyCode) bool {
	return !s.KeyboardPrevious.Keys[key&0xFF]
}

// ProcessKey records the key state and queues the matching event. Releases are
// only reported on a state change, presses are reported every time so that OS
// auto-repeat keeps generating key-down events while a key is held.
func (s *InputState) ProcessKey(key KeyCode, pressed bool) {
	idx := key & 0xFF
	changed := s.KeyboardCurrent.Keys[idx] != pressed
	s.KeyboardCurrent.Keys[idx] = pressed

	if pressed {
		s.events.Enqueue(EventContext{
			Type: EVENT_CODE_KEY_PRESSED,
			Data: &KeyEvent{KeyCode: key, Repeat: !changed},
		})
		return
	}
	if changed {
		s.events.Enqueue(EventContext{
			Type: EVENT_CODE_KEY_RELEASED,
			Data: &KeyEvent{KeyCode: key},
		})
	}
}
