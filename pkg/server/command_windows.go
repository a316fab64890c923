//go:build windows

package server

import (
	"os/exec"
	"syscall"
)

func isolateModelServer(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
