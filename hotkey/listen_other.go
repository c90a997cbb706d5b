//go:build !linux && !darwin && !windows

package hotkey

func Start(table *Table, q *Queue, cfg ListenConfig) (Listener, error) {
	return nil, errNoEvdev
}
