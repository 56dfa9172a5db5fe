//go:build !windows

package doctor

import "os/exec"

// resetTerminal undoes raw mode left behind by an interrupted TUI run.
func resetTerminal() {
	_ = exec.Command("stty", "sane").Run()
}
