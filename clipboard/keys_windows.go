package clipboard

import "github.com/micmonay/keybd_event"

func setPrimaryModifier(kb *keybd_event.KeyBonding) { kb.HasCTRL(true) }
