//go:build !windows

package proctree

import (
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
)

func sendSignal(pid int32, sig Signal) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		// Already exited between snapshot and kill - not an error, per
		// KillTree's best-effort contract.
		return nil
	}

	return p.SendSignal(unixSignal(sig))
}

func unixSignal(sig Signal) syscall.Signal {
	switch sig {
	case SignalKill:
		return syscall.SIGKILL
	case SignalInterrupt:
		return syscall.SIGINT
	case SignalHangup:
		return syscall.SIGHUP
	default:
		return syscall.SIGTERM
	}
}
