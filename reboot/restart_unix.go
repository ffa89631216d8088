//go:build !windows

package reboot

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Restart replaces the current process with a fresh copy of its executable,
// started with the same arguments and environment.
func Restart() error {
	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	binary, err = filepath.EvalSymlinks(binary)
	if err != nil {
		return fmt.Errorf("failed to resolve symlinks: %w", err)
	}

	return syscall.Exec(binary, os.Args, os.Environ())
}
