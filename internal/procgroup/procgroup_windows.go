//go:build windows

package procgroup

import (
	"os/exec"
	"syscall"
)

// Set is a no-op on Windows; job objects are not wired up here.
func Set(_ *exec.Cmd) {}

// Kill terminates the process directly. Child processes spawned by the
// encoder are not tracked on this platform.
func Kill(cmd *exec.Cmd, _ syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
