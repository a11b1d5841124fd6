// Package pty runs each task in its own pseudo-terminal: a VT100 parser
// renders the live screen, a raw-output buffer lets a resize rebuild and
// replay that parser at the new dimensions, and the task's exit code is
// delivered exactly once through a one-shot channel.
package pty

import (
	"bytes"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	creackpty "github.com/creack/pty"
	"github.com/hinshun/vt10x"

	"github.com/nrwl-labs/nxcore/internal/nxerrors"
)

// Instance is one task's pseudo-terminal: the spawned command, its master
// fd, a live VT100 parser, and the buffers a resize or late subscriber
// needs to reconstruct what's already happened.
type Instance struct {
	TaskID string

	cmd  *exec.Cmd
	ptmx *os.File

	mu         sync.RWMutex
	size       Size
	parser     vt10x.Terminal
	raw        bytes.Buffer
	scrollback []string
	partial    string

	exitOnce sync.Once
	exitCh   chan int
	doneCh   chan struct{}
}

// Start spawns command through the platform shell inside dir with env
// layered over the inherited environment, attached to a pseudo-terminal
// sized to size (clamped to the minimum usable extent). The returned
// Instance's read loop is already running.
func Start(taskID, command, dir string, env map[string]string, size Size) (*Instance, error) {
	size = size.Clamp()

	cmd := shellCommand(command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), envPairs(env)...)

	ptmx, err := creackpty.StartWithSize(cmd, size.winsize())
	if err != nil {
		return nil, &nxerrors.IOError{Op: "start pty", Err: err}
	}

	parser := vt10x.New()
	parser.Resize(size.Cols, size.Rows)

	inst := &Instance{
		TaskID: taskID,
		cmd:    cmd,
		ptmx:   ptmx,
		size:   size,
		parser: parser,
		exitCh: make(chan int, 1),
		doneCh: make(chan struct{}),
	}

	go inst.readLoop()
	go inst.waitLoop()

	return inst, nil
}

func envPairs(env map[string]string) []string {
	pairs := make([]string, 0, len(env))
	for k, v := range env {
		pairs = append(pairs, k+"="+v)
	}
	return pairs
}

func shellCommand(command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", "/C", command)
	}
	return exec.Command("sh", "-c", command)
}

// Write sends keystrokes to the child's stdin through the pty master.
func (i *Instance) Write(p []byte) (int, error) {
	return i.ptmx.Write(p)
}

// Resize changes the pty's dimensions, rebuilds the VT100 parser at the
// new size, and replays the entire raw-output buffer into it so the
// redrawn screen reflects the same content at the new dimensions -
// scrollback offset is the caller's (the TUI pane's) concern to reset to
// 0, not this package's.
func (i *Instance) Resize(size Size) error {
	size = size.Clamp()

	if err := creackpty.Setsize(i.ptmx, size.winsize()); err != nil {
		return &nxerrors.IOError{Op: "resize pty", Err: err}
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.size = size
	i.parser = vt10x.New()
	i.parser.Resize(size.Cols, size.Rows)
	_, _ = i.parser.Write(i.raw.Bytes())

	return nil
}

// Size returns the pty's current dimensions.
func (i *Instance) Size() Size {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.size
}

// Screen renders the parser's current visible screen contents.
func (i *Instance) Screen() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.parser.String()
}

// Scrollback returns up to ScrollbackLimit completed output lines,
// oldest first.
func (i *Instance) Scrollback() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	lines := make([]string, len(i.scrollback))
	copy(lines, i.scrollback)
	return lines
}

// RawOutput returns everything read from the pty master so far.
func (i *Instance) RawOutput() []byte {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]byte(nil), i.raw.Bytes()...)
}

// Pid returns the spawned command's process id, or 0 if it has not
// started (it always has, by the time Start returns a non-nil Instance) -
// callers needing a full process-tree kill pass this to proctree.KillTree.
func (i *Instance) Pid() int {
	if i.cmd.Process == nil {
		return 0
	}
	return i.cmd.Process.Pid
}

// ExitCode delivers the task's exit code exactly once. It is safe to call
// from a single consumer; callers that need the result observed from more
// than one place should fan it out themselves after the first receive.
func (i *Instance) ExitCode() <-chan int {
	return i.exitCh
}

// Kill terminates the underlying command's process (not its descendants -
// callers needing a full process-tree kill should pair this with
// proctree.KillTree against cmd.Process.Pid before this, since closing the
// pty master alone does not guarantee descendants exit).
func (i *Instance) Kill() error {
	if i.cmd.Process == nil {
		return nil
	}
	return i.cmd.Process.Kill()
}

// Close releases the pty master file descriptor.
func (i *Instance) Close() error {
	return i.ptmx.Close()
}

func (i *Instance) readLoop() {
	buf := make([]byte, 8*1024)

	for {
		n, err := i.ptmx.Read(buf)
		if n > 0 {
			i.consume(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func (i *Instance) consume(chunk []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.raw.Write(chunk)
	_, _ = i.parser.Write(chunk)

	i.partial += string(chunk)
	for {
		idx := strings.IndexByte(i.partial, '\n')
		if idx < 0 {
			break
		}

		line := i.partial[:idx]
		i.partial = i.partial[idx+1:]

		i.scrollback = append(i.scrollback, line)
		if len(i.scrollback) > ScrollbackLimit {
			i.scrollback = i.scrollback[len(i.scrollback)-ScrollbackLimit:]
		}
	}
}

func (i *Instance) waitLoop() {
	err := i.cmd.Wait()
	drainAfterExit(i)

	code := exitCodeOf(err)
	i.exitOnce.Do(func() {
		i.exitCh <- code
		close(i.doneCh)
	})
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
