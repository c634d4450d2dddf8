package wsock

import (
	"io"
	"sync"
)

// Handler is a callback invoked with a fully assembled message. The
// returned propagate flag controls further dispatch: false stops the
// chain before the generic handler (or before any later
// specific-opcode handler) runs.
type Handler func(opcode Opcode, payload []byte) (propagate bool)

// killState is process-wide: spec.md §4.8 "Dying is global (process-wide
// kill flag + reason) because a worker handles one socket at a time."
// A worker only ever owns a single WebSocket connection, so there is no
// cross-connection race to guard against here.
var (
	killMu     sync.Mutex
	killed     bool
	killReason string
)

// Kill marks the process-wide WebSocket state dead with reason. Once
// killed, Conn.Send refuses further writes.
func Kill(reason string) {
	killMu.Lock()
	killed = true
	killReason = reason
	killMu.Unlock()
}

// Killed reports whether Kill has been called, and with what reason.
func Killed() (bool, string) {
	killMu.Lock()
	defer killMu.Unlock()
	return killed, killReason
}

// ResetKill clears the process-wide kill state. Exists for tests; a
// real worker process dies rather than resetting it.
func ResetKill() {
	killMu.Lock()
	killed = false
	killReason = ""
	killMu.Unlock()
}

// Conn wraps a raw byte-stream connection with WebSocket framing: a
// Decoder for inbound messages, a leftover buffer for partial sends,
// and opcode-gated callback dispatch (spec.md §4.8).
type Conn struct {
	rw      io.ReadWriter
	dec     *Decoder
	masked  bool // true on the client side, frames sent masked
	readBuf []byte

	leftover []byte // unsent tail from a would-block write

	onText   Handler
	onBinary Handler
	onClose  Handler
	onAny    Handler
}

// NewConn wraps rw. masked controls whether outbound frames this Conn
// writes carry a mask (client role) or not (server role).
func NewConn(rw io.ReadWriter, masked bool) *Conn {
	return &Conn{
		rw:      rw,
		dec:     NewDecoder(),
		masked:  masked,
		readBuf: make([]byte, 4096),
	}
}

// OnText sets the callback for assembled text messages.
func (c *Conn) OnText(h Handler) { c.onText = h }

// OnBinary sets the callback for assembled binary messages.
func (c *Conn) OnBinary(h Handler) { c.onBinary = h }

// OnClose sets the callback for CLOSE frames.
func (c *Conn) OnClose(h Handler) { c.onClose = h }

// OnAny sets the generic callback run after any specific-opcode
// callback that did not stop propagation.
func (c *Conn) OnAny(h Handler) { c.onAny = h }

// dispatch runs the specific-opcode callback (if any) then the
// generic one, stopping at the first false propagate result
// (spec.md §4.8 "Dispatch order: specific-opcode callback ..., then
// the generic callback; each returns a propagate flag; propagation
// stops at the first false").
func (c *Conn) dispatch(msg *Message) error {
	var specific Handler
	switch msg.Opcode {
	case OpText:
		specific = c.onText
	case OpBinary:
		specific = c.onBinary
	case OpClose:
		specific = c.onClose
	}

	if specific != nil {
		if !specific(msg.Opcode, msg.Payload) {
			return nil
		}
	}
	if c.onAny != nil {
		c.onAny(msg.Opcode, msg.Payload)
	}
	return nil
}

// Pump reads from the underlying connection until it blocks or errors,
// feeding the decoder and dispatching every assembled message. PING
// frames are answered with a PONG of the same payload and never reach
// a callback (spec.md §4.8).
func (c *Conn) Pump() error {
	for {
		n, err := c.rw.Read(c.readBuf)
		if n > 0 {
			c.dec.Feed(c.readBuf[:n])
			if derr := c.drain(); derr != nil {
				return derr
			}
		}
		if err != nil {
			return err
		}
	}
}

// drain pulls every complete message currently buffered in the
// decoder, answering PINGs and dispatching everything else.
func (c *Conn) drain() error {
	for {
		msg, err := c.dec.Next()
		if err == ErrNeedMoreData {
			return nil
		}
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}
		if msg.Opcode == OpPing {
			if _, err := c.Send(Frame{Fin: true, Opcode: OpPong, Masked: c.masked, Payload: msg.Payload}); err != nil {
				return err
			}
			continue
		}
		if err := c.dispatch(msg); err != nil {
			return err
		}
	}
}

// Send writes f to the connection. Any unsent leftover from a prior
// partial write is flushed first (spec.md §4.8 "if socket would block,
// retain unsent tail in a leftover buffer and report partial"). Send
// refuses to write once the process-wide kill flag is set.
func (c *Conn) Send(f Frame) (n int, err error) {
	if k, _ := Killed(); k {
		return 0, io.ErrClosedPipe
	}

	out := Encode(f)
	if len(c.leftover) > 0 {
		if err := c.flushLeftover(); err != nil {
			c.leftover = append(c.leftover, out...)
			return 0, err
		}
		if len(c.leftover) > 0 {
			// Tail still unsent: queue f behind it to keep frame order.
			c.leftover = append(c.leftover, out...)
			return 0, nil
		}
	}
	return c.write(out)
}

// write attempts a single write, queuing any unwritten tail into
// leftover rather than treating it as an error.
func (c *Conn) write(buf []byte) (int, error) {
	n, err := c.rw.Write(buf)
	if n < len(buf) {
		c.leftover = append(c.leftover[:0], buf[n:]...)
	}
	return n, err
}

// flushLeftover attempts to drain any queued partial-send tail.
func (c *Conn) flushLeftover() error {
	pending := c.leftover
	c.leftover = nil
	n, err := c.rw.Write(pending)
	if n < len(pending) {
		c.leftover = append(c.leftover, pending[n:]...)
	}
	return err
}

// HasLeftover reports whether a partial send is still queued.
func (c *Conn) HasLeftover() bool {
	return len(c.leftover) > 0
}
