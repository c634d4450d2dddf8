package worker

import (
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/serverino/internal/config"
	"github.com/yourusername/serverino/internal/dispatch"
	"github.com/yourusername/serverino/internal/request"
	"github.com/yourusername/serverino/internal/response"
	"github.com/yourusername/serverino/internal/wire"
)

// readOutboundPayload reads one full WorkerPayload frame off conn and
// splits it into its HTTP status line, headers, and body, since
// wire.ReadOutboundHeader's contentLength spans headers+body rather
// than the HTTP content-length the response itself carries.
func readOutboundPayload(t *testing.T, conn net.Conn) (keepAlive bool, statusLine string, headers map[string]string, body []byte) {
	t.Helper()
	ka, n, err := wire.ReadOutboundHeader(conn)
	if err != nil {
		t.Fatalf("ReadOutboundHeader: %v", err)
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(conn, raw); err != nil {
		t.Fatalf("read payload: %v", err)
	}

	head, rest, found := strings.Cut(string(raw), "\r\n\r\n")
	if !found {
		t.Fatalf("payload has no header terminator: %q", raw)
	}
	lines := strings.Split(head, "\r\n")

	h := map[string]string{}
	for _, line := range lines[1:] {
		k, v, ok := strings.Cut(line, ": ")
		if ok {
			h[k] = v
		}
	}
	return ka, lines[0], h, []byte(rest)
}

func newTestWorker(t *testing.T, cfg config.Config, reg *dispatch.Registry) (*Worker, net.Conn) {
	t.Helper()
	serverSide, daemonSide := net.Pipe()
	w := New(Env{DaemonPID: 1}, cfg, reg)
	w.conn = serverSide
	w.startedAt = time.Now()
	w.lastActivity.Store(w.startedAt.UnixNano())
	return w, daemonSide
}

func TestCheckSelfTerminationIdle(t *testing.T) {
	cfg := config.Default()
	cfg.MaxWorkerIdling = 10 * time.Millisecond
	w, daemon := newTestWorker(t, cfg, dispatch.New())
	defer daemon.Close()

	w.lastActivity.Store(time.Now().Add(-time.Hour).UnixNano())

	reason, exit := w.checkSelfTermination()
	if !exit || reason != "idle timeout" {
		t.Fatalf("got (%q, %v), want idle timeout", reason, exit)
	}
}

func TestCheckSelfTerminationLifetime(t *testing.T) {
	cfg := config.Default()
	cfg.MaxWorkerLifetime = 10 * time.Millisecond
	w, daemon := newTestWorker(t, cfg, dispatch.New())
	defer daemon.Close()

	w.startedAt = time.Now().Add(-time.Hour)

	reason, exit := w.checkSelfTermination()
	if !exit || reason != "lifetime exceeded" {
		t.Fatalf("got (%q, %v), want lifetime exceeded", reason, exit)
	}
}

func TestCheckSelfTerminationDynamicCooldown(t *testing.T) {
	cfg := config.Default()
	cfg.MaxWorkerIdling = 2 * time.Hour // keep the plain idle trigger out of the way
	cfg.MaxDynamicWorkerIdling = 10 * time.Millisecond
	reg := dispatch.New()
	serverSide, daemonSide := net.Pipe()
	defer daemonSide.Close()

	w := New(Env{DaemonPID: 1, DynamicWorker: true}, cfg, reg)
	w.conn = serverSide
	w.startedAt = time.Now()
	w.lastActivity.Store(time.Now().Add(-time.Hour).UnixNano())

	reason, exit := w.checkSelfTermination()
	if !exit || reason != "dynamic worker idle cooldown" {
		t.Fatalf("got (%q, %v), want dynamic worker idle cooldown", reason, exit)
	}
}

func TestHandleOneSendsResponseAndResetsState(t *testing.T) {
	reg := dispatch.New()
	reg.Register("ok", 0, nil, func(r *request.Request, w *response.Output) error {
		w.SetStatus(200)
		w.WriteString("hi")
		return nil
	})

	cfg := config.Default()
	w, daemon := newTestWorker(t, cfg, reg)
	defer daemon.Close()
	defer w.conn.Close()

	raw := []byte("GET / HTTP/1.1\r\nhost: x\r\n\r\n")

	done := make(chan struct{})
	go func() {
		w.handleOne(raw)
		close(done)
	}()

	keepAlive, _, headers, body := readOutboundPayload(t, daemon)
	<-done

	if !keepAlive {
		t.Fatal("expected keep-alive true for an HTTP/1.1 request with no connection:close header")
	}
	if headers["content-length"] != strconv.Itoa(len(body)) {
		t.Fatalf("content-length header %q doesn't match body length %d", headers["content-length"], len(body))
	}
	if string(body) != "hi" {
		t.Fatalf("body = %q, want %q", body, "hi")
	}

	if w.processedStartedAt.Load() != 0 {
		t.Fatal("expected processedStartedAt reset to 0 after handling")
	}
	if !w.justSent.Load() {
		t.Fatal("expected justSent true after a successful send")
	}
}

func TestHandleOneSuppressesBodyForHEAD(t *testing.T) {
	reg := dispatch.New()
	reg.Register("ok", 0, nil, func(r *request.Request, w *response.Output) error {
		w.WriteString("this body must never reach the wire")
		return nil
	})

	cfg := config.Default()
	w, daemon := newTestWorker(t, cfg, reg)
	defer daemon.Close()
	defer w.conn.Close()

	raw := []byte("HEAD / HTTP/1.1\r\nhost: x\r\n\r\n")

	done := make(chan struct{})
	go func() {
		w.handleOne(raw)
		close(done)
	}()

	_, _, headers, body := readOutboundPayload(t, daemon)
	<-done

	if headers["content-length"] != "0" {
		t.Fatalf("content-length header = %q, want \"0\" for a HEAD response", headers["content-length"])
	}
	if len(body) != 0 {
		t.Fatalf("body = %q, want empty for a HEAD response", body)
	}
}

func TestHandleOneShortCircuitsMalformedRequestTo400(t *testing.T) {
	reg := dispatch.New()
	var handlerRan bool
	reg.Register("ok", 0, nil, func(r *request.Request, w *response.Output) error {
		handlerRan = true
		w.WriteString("should never run")
		return nil
	})

	cfg := config.Default()
	w, daemon := newTestWorker(t, cfg, reg)
	defer daemon.Close()
	defer w.conn.Close()

	raw := []byte("BOGUS / HTTP/1.1\r\nhost: x\r\n\r\n")

	done := make(chan struct{})
	go func() {
		w.handleOne(raw)
		close(done)
	}()

	_, statusLine, headers, body := readOutboundPayload(t, daemon)
	<-done

	if handlerRan {
		t.Fatal("expected no registered handler to run for a malformed request line")
	}
	if !strings.HasPrefix(statusLine, "HTTP/1.1 400 ") {
		t.Fatalf("status line = %q, want a 400", statusLine)
	}
	if headers["content-length"] != "0" {
		t.Fatalf("content-length header = %q, want \"0\"", headers["content-length"])
	}
	if len(body) != 0 {
		t.Fatalf("body = %q, want empty", body)
	}
}
