//go:build windows

package config

import (
	"os"
	"os/exec"
)

// isProcessAlive checks whether a process with the given PID exists.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Windows, FindProcess always succeeds. Signal(0) is not supported,
	// so we rely on the fact that FindProcess doesn't error for valid PIDs.
	// This is a best-effort check.
	_ = p
	return true
}

// applyPlatformBackgroundFlags is a no-op on Windows; exec.Cmd processes are
// not attached to a POSIX session the way Unix children are.
func applyPlatformBackgroundFlags(c *exec.Cmd) {}

// stopProcess has no graceful-shutdown signal on Windows, so this falls
// back to Kill.
func stopProcess(p *os.Process) error {
	return p.Kill()
}
