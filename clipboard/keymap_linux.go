//go:build linux

package clipboard

import "improve/hotkey"

var letterKeys = [26]hotkey.Key{
	hotkey.KeyA, hotkey.KeyB, hotkey.KeyC, hotkey.KeyD, hotkey.KeyE,
	hotkey.KeyF, hotkey.KeyG, hotkey.KeyH, hotkey.KeyI, hotkey.KeyJ,
	hotkey.KeyK, hotkey.KeyL, hotkey.KeyM, hotkey.KeyN, hotkey.KeyO,
	hotkey.KeyP, hotkey.KeyQ, hotkey.KeyR, hotkey.KeyS, hotkey.KeyT,
	hotkey.KeyU, hotkey.KeyV, hotkey.KeyW, hotkey.KeyX, hotkey.KeyY,
	hotkey.KeyZ,
}

var digitKeys = [10]hotkey.Key{
	hotkey.Key0, hotkey.Key1, hotkey.Key2, hotkey.Key3, hotkey.Key4,
	hotkey.Key5, hotkey.Key6, hotkey.Key7, hotkey.Key8, hotkey.Key9,
}

type keyStroke struct {
	code  hotkey.Key
	shift bool
}

// US layout punctuation.
var punctKeys = map[byte]keyStroke{
	'.': {52, false}, ',': {51, false}, '/': {53, false},
	';': {39, false}, '\'': {40, false}, '[': {26, false},
	']': {27, false}, '-': {12, false}, '=': {13, false},
	'\\': {43, false}, '`': {41, false},
	'!': {hotkey.Key1, true}, '@': {hotkey.Key2, true}, '#': {hotkey.Key3, true},
	'$': {hotkey.Key4, true}, '%': {hotkey.Key5, true}, '^': {hotkey.Key6, true},
	'&': {hotkey.Key7, true}, '*': {hotkey.Key8, true}, '(': {hotkey.Key9, true},
	')': {hotkey.Key0, true}, '_': {12, true}, '+': {13, true},
	'{': {26, true}, '}': {27, true}, '|': {43, true},
	':': {39, true}, '"': {40, true}, '<': {51, true},
	'>': {52, true}, '?': {53, true}, '~': {41, true},
}

func charToKey(c byte) (code hotkey.Key, shift bool, ok bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return letterKeys[c-'a'], false, true
	case c >= 'A' && c <= 'Z':
		return letterKeys[c-'A'], true, true
	case c >= '0' && c <= '9':
		return digitKeys[c-'0'], false, true
	case c == ' ':
		return hotkey.KeySpace, false, true
	case c == '\n':
		return hotkey.KeyEnter, false, true
	case c == '\t':
		return hotkey.KeyTab, false, true
	}
	if k, ok := punctKeys[c]; ok {
		return k.code, k.shift, true
	}
	return 0, false, false
}

// typeable reports whether every byte of text has a key on the US layout.
func typeable(text string) bool {
	for i := 0; i < len(text); i++ {
		if _, _, ok := charToKey(text[i]); !ok {
			return false
		}
	}
	return true
}
