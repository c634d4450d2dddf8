// Package worker implements the worker process lifecycle of spec.md
// §4.5/§4.6: bootstrap from environment variables, connect to the
// daemon's control socket, drop privileges, run the request loop, and
// self-terminate on idle/lifetime/daemon-death triggers.
package worker

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sys/unix"
)

// Env is the bootstrap information a worker reads from its process
// environment (spec.md §7 "Environment variables consumed").
type Env struct {
	DaemonPID      int
	SocketPath     string
	DynamicWorker  bool
	Debug          bool
}

// ParseEnv reads SERVERINO_DAEMON, SERVERINO_SOCKET,
// SERVERINO_DYNAMIC_WORKER and the SPEC_FULL.md domain addition
// SERVERINO_DEBUG from the process environment.
func ParseEnv() (Env, error) {
	var e Env

	daemonStr := os.Getenv("SERVERINO_DAEMON")
	if daemonStr == "" {
		return Env{}, fmt.Errorf("worker: SERVERINO_DAEMON not set")
	}
	pid, err := strconv.Atoi(daemonStr)
	if err != nil {
		return Env{}, fmt.Errorf("worker: invalid SERVERINO_DAEMON %q: %w", daemonStr, err)
	}
	e.DaemonPID = pid

	e.SocketPath = os.Getenv("SERVERINO_SOCKET")
	if e.SocketPath == "" {
		return Env{}, fmt.Errorf("worker: SERVERINO_SOCKET not set")
	}

	e.DynamicWorker = os.Getenv("SERVERINO_DYNAMIC_WORKER") == "1"
	e.Debug = os.Getenv("SERVERINO_DEBUG") == "1"

	return e, nil
}

// DaemonAlive reports whether the parent daemon process is still
// running, by sending it signal 0 (spec.md §4.6 "daemon-death" is one
// of the self-termination triggers).
func (e Env) DaemonAlive() bool {
	return unix.Kill(e.DaemonPID, 0) == nil
}

// DialControlSocket connects to the daemon's UNIX control socket. On
// Linux, path is interpreted as an abstract-namespace name: the kernel
// address is the name prefixed with a NUL byte rather than a
// filesystem path (spec.md §7 "auto-prefixed with a NUL byte"), which
// is why this dials through golang.org/x/sys/unix directly instead of
// net.Dial — there is no on-disk socket file to stat or unlink. On
// other platforms path is used as a filesystem path.
func DialControlSocket(path string) (net.Conn, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("worker: socket: %w", err)
	}

	name := path
	if runtime.GOOS == "linux" {
		name = "\x00" + path
	}
	addr := &unix.SockaddrUnix{Name: name}
	if err := unix.Connect(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("worker: connect %s: %w", path, err)
	}

	f := os.NewFile(uintptr(fd), "serverino-control-socket")
	conn, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("worker: FileConn: %w", err)
	}
	return conn, nil
}
