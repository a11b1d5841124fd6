package daemonenv

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"runtime"
)

// SocketPath returns the path (unix domain socket) or named-pipe name
// (Windows) a daemon for workspaceRoot and its clients agree on without
// any rendezvous step - both sides derive it the same way from the
// workspace root alone.
func SocketPath(workspaceRoot string) string {
	hash := hashWorkspaceRoot(workspaceRoot)

	if runtime.GOOS == "windows" {
		return `\\.\pipe\nx-daemon-` + hash
	}

	return filepath.Join(socketDir(), fmt.Sprintf("nx-daemon-%s.sock", hash))
}

// socketDir resolves the directory unix-domain sockets are created under:
// NX_SOCKET_DIR, then NX_DAEMON_SOCKET_DIR, then the OS temp directory.
func socketDir() string {
	if dir := os.Getenv("NX_SOCKET_DIR"); dir != "" {
		return dir
	}
	if dir := os.Getenv("NX_DAEMON_SOCKET_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// hashWorkspaceRoot derives a short stable identifier for workspaceRoot so
// concurrently open workspaces on the same machine get distinct sockets.
func hashWorkspaceRoot(workspaceRoot string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(workspaceRoot))
	return fmt.Sprintf("%x", h.Sum64())
}
