//go:build !windows

package server

import (
	"os/exec"
	"syscall"
)

// isolateModelServer starts the model server in its own process group so a
// terminal interrupt reaches it only through our SIGTERM on shutdown.
func isolateModelServer(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
