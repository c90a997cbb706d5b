package hotkey

// Tracker holds the logical modifier state derived from key events.
//
// Left and right keys share one logical modifier and a release clears it
// unconditionally, so holding both shifts and releasing one reads as
// "shift not held". Per-side counts are not kept.
type Tracker struct {
	mods Modifiers
}

func (t *Tracker) Update(k Key, p Phase) {
	var held *bool
	switch k {
	case KeyLeftShift, KeyRightShift:
		held = &t.mods.Shift
	case KeyLeftCtrl, KeyRightCtrl:
		held = &t.mods.Ctrl
	case KeyLeftAlt, KeyRightAlt:
		held = &t.mods.Alt
	default:
		return
	}
	switch p {
	case PhasePress:
		*held = true
	case PhaseRelease:
		*held = false
	}
}

func (t *Tracker) State() Modifiers { return t.mods }

func (t *Tracker) Reset() { t.mods = Modifiers{} }
