package worker

import (
	"errors"
	"io"
	"log"
	"net"
	"os"
	"os/user"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/yourusername/serverino/internal/config"
	"github.com/yourusername/serverino/internal/dispatch"
	"github.com/yourusername/serverino/internal/metrics"
	"github.com/yourusername/serverino/internal/request"
	"github.com/yourusername/serverino/internal/response"
	"github.com/yourusername/serverino/internal/wire"
)

// receiveTimeout is the control socket's read deadline. A timeout is
// the only scheduled wake in the request loop (spec.md §4.5 "set
// 1-second receive timeout so the idle watchdog can tick").
const receiveTimeout = time.Second

// Worker drives one worker process's lifecycle: connect, ack,
// privilege drop, request loop, self-termination.
type Worker struct {
	env      Env
	cfg      config.Config
	registry *dispatch.Registry
	conn     net.Conn

	startedAt    time.Time
	lastActivity atomic.Int64 // unix nanoseconds

	// processedStartedAt is published (release) on entering dispatch and
	// reset (release) on exit; the watchdog reads it with acquire
	// semantics (spec.md §4.6, §9 "processedStartedAt is published with
	// release semantics...watchdog reads with acquire semantics").
	processedStartedAt atomic.Int64
	justSent            atomic.Bool
}

// New constructs a Worker bound to registry, not yet connected.
func New(env Env, cfg config.Config, registry *dispatch.Registry) *Worker {
	registry.SetDebug(env.Debug)
	return &Worker{env: env, cfg: cfg, registry: registry}
}

// Run executes the full lifecycle described in spec.md §4.5. It only
// returns on a self-termination condition; fatal startup errors are
// returned directly rather than calling os.Exit, so callers (tests,
// cmd/ wrappers) can decide how to report them.
func (w *Worker) Run() error {
	conn, err := DialControlSocket(w.env.SocketPath)
	if err != nil {
		return err
	}
	w.conn = conn
	if w.env.DynamicWorker {
		// Every dynamic worker process is itself a replacement spawned
		// on demand by the daemon; counting its startup is the only
		// restart signal visible from inside the worker.
		metrics.WorkerRestarts.Inc()
	}

	if _, err := conn.Write([]byte{1}); err != nil {
		conn.Close()
		return err
	}

	if w.cfg.User != "" || w.cfg.Group != "" {
		if err := dropPrivileges(w.cfg.User, w.cfg.Group); err != nil {
			conn.Close()
			return err
		}
	}
	if unix.Getuid() == 0 {
		log.Printf("serverino: worker: running as root")
	}

	if err := redirectStdinToNull(); err != nil {
		log.Printf("serverino: worker: redirect stdin: %v", err)
	}

	w.registry.RunStartupHooks()

	w.startedAt = time.Now()
	w.lastActivity.Store(w.startedAt.UnixNano())

	wd := newWatchdog(w)
	go wd.run()

	return w.requestLoop()
}

func (w *Worker) requestLoop() error {
	for {
		w.conn.SetReadDeadline(time.Now().Add(receiveTimeout))

		raw, err := wire.ReadInbound(w.conn)
		if err != nil {
			if isTimeout(err) {
				if reason, shouldExit := w.checkSelfTermination(); shouldExit {
					log.Printf("serverino: worker: self-terminating: %s", reason)
					w.registry.RunShutdownHooks()
					w.conn.Close()
					return nil
				}
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				w.registry.RunShutdownHooks()
				w.conn.Close()
				return nil
			}
			w.conn.Close()
			return err
		}

		w.handleOne(raw)
		w.lastActivity.Store(time.Now().UnixNano())
	}
}

func (w *Worker) handleOne(raw []byte) {
	r := request.Get()
	defer request.Put(r)
	out := response.New()
	defer out.Release()

	w.processedStartedAt.Store(time.Now().UnixNano()) // release
	w.justSent.Store(false)

	request.Parse(r, raw)
	out.KeepAlive = r.KeepAlive && w.cfg.KeepAlive

	// A request that failed to parse never reaches a handler (spec.md
	// §7 "Error Handling Design"): malformed request line, unknown
	// method, malformed header, or bad percent-escape short-circuits to
	// 400; a multipart boundary/trailer failure short-circuits to 422.
	switch r.ParsingStatus {
	case request.StatusInvalidRequest:
		out.SetStatus(400)
		out.SendBody = false
	case request.StatusInvalidBody:
		out.SetStatus(422)
		out.SendBody = false
	default:
		w.registry.Dispatch(r, out)
	}

	// CONNECT/HEAD/TRACE responses never carry a body, even if the
	// handler wrote one (spec.md §3, §8 scenario 4).
	if r.Method.SuppressesBody() {
		out.SendBody = false
	}

	out.BuildHeaders()

	if w.justSent.CompareAndSwap(false, true) {
		wire.WriteOutbound(w.conn, out.KeepAlive, out.HeadersBuffer.Bytes(), out.SendBuffer.Bytes())
	}
	w.processedStartedAt.Store(0) // release
}

// checkSelfTermination evaluates the triggers of spec.md §4.5 after a
// receive timeout.
func (w *Worker) checkSelfTermination() (reason string, shouldExit bool) {
	idle := time.Since(time.Unix(0, w.lastActivity.Load()))
	lifetime := time.Since(w.startedAt)

	switch {
	case idle > w.cfg.MaxWorkerIdling:
		return "idle timeout", true
	case lifetime > w.cfg.MaxWorkerLifetime:
		return "lifetime exceeded", true
	case w.env.DynamicWorker && idle > w.cfg.MaxDynamicWorkerIdling:
		return "dynamic worker idle cooldown", true
	case !w.env.DaemonAlive():
		return "daemon no longer alive", true
	}
	return "", false
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func dropPrivileges(username, groupname string) error {
	if groupname != "" {
		g, err := user.LookupGroup(groupname)
		if err != nil {
			return err
		}
		gid, err := strconv.Atoi(g.Gid)
		if err != nil {
			return err
		}
		if err := unix.Setgid(gid); err != nil {
			return err
		}
	}
	if username != "" {
		u, err := user.Lookup(username)
		if err != nil {
			return err
		}
		uid, err := strconv.Atoi(u.Uid)
		if err != nil {
			return err
		}
		if err := unix.Setuid(uid); err != nil {
			return err
		}
	}
	return nil
}

func redirectStdinToNull() error {
	null, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer null.Close()
	return unix.Dup2(int(null.Fd()), int(os.Stdin.Fd()))
}
