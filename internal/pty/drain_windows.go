//go:build windows

package pty

import "time"

// windowsExitDrain is how long readLoop is given to pick up any output
// ConPTY still has buffered after the child process has already exited;
// without this a task's last few lines are sometimes lost.
const windowsExitDrain = 500 * time.Millisecond

func drainAfterExit(_ *Instance) {
	time.Sleep(windowsExitDrain)
}
