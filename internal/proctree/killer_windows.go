//go:build windows

package proctree

import "github.com/shirou/gopsutil/v3/process"

// sendSignal ignores sig on Windows: console applications have no signal
// delivery mechanism, so every requested signal maps to TerminateProcess,
// matching the native layer's windows.rs/map_signal (everything -> Kill).
func sendSignal(pid int32, _ Signal) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil
	}

	return p.Kill()
}
