package hotkey

// Table is an ordered list of registered chords. The index returned by
// Register identifies the chord in emitted events.
type Table struct {
	chords []Chord
}

func NewTable(chords ...Chord) *Table {
	t := &Table{}
	for _, c := range chords {
		t.Register(c)
	}
	return t
}

// Register appends c and returns its index. Indices start at 0.
func (t *Table) Register(c Chord) int {
	t.chords = append(t.chords, c)
	return len(t.chords) - 1
}

// Match reports the first registered chord whose key equals k and whose
// modifier set equals mods exactly. Only presses match.
func (t *Table) Match(k Key, p Phase, mods Modifiers) (int, bool) {
	if p != PhasePress {
		return 0, false
	}
	for i, c := range t.chords {
		if c.Key == k && c.Mods == mods {
			return i, true
		}
	}
	return 0, false
}

func (t *Table) Len() int { return len(t.chords) }

func (t *Table) Chord(i int) Chord { return t.chords[i] }

func (t *Table) Chords() []Chord {
	out := make([]Chord, len(t.chords))
	copy(out, t.chords)
	return out
}
