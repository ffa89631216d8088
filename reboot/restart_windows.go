//go:build windows

package reboot

import (
	"fmt"
	"os"
	"os/exec"
)

// Restart starts a fresh copy of the executable with the same arguments
// and exits the current process.
func Restart() error {
	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(binary, os.Args[1:]...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", binary, err)
	}

	os.Exit(0)
	return nil
}
