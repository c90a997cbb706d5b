//go:build !windows

package doctor

import "os/exec"

// resetTerminal undoes raw mode left behind by hotkey grabs and prompts.
func resetTerminal() {
	exec.Command("stty", "sane").Run()
}
