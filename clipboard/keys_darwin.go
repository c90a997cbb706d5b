package clipboard

import "github.com/micmonay/keybd_event"

// Cmd on macOS.
func setPrimaryModifier(kb *keybd_event.KeyBonding) { kb.HasSuper(true) }
