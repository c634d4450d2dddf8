// Package buffer provides an append-only growable byte container used for
// headers, bodies, and WebSocket framing scratch space throughout the
// worker. Buffers are reused across request iterations instead of being
// reallocated; Clear truncates without shrinking so hot paths stay
// allocation-free once warmed up.
package buffer

import (
	"github.com/valyala/bytebufferpool"

	"github.com/yourusername/serverino/internal/metrics"
)

// Buffer is a growable byte container backed by a pooled bytebufferpool
// buffer. The zero value is not usable; construct one with Get.
type Buffer struct {
	b *bytebufferpool.ByteBuffer
}

// Get checks out a Buffer from the shared pool.
func Get() *Buffer {
	metrics.BufferPoolGets.Inc()
	return &Buffer{b: bytebufferpool.Get()}
}

// Release returns the underlying pooled buffer to the shared pool. The
// Buffer must not be used afterward.
func (buf *Buffer) Release() {
	if buf.b == nil {
		return
	}
	bytebufferpool.Put(buf.b)
	buf.b = nil
	metrics.BufferPoolPuts.Inc()
}

// Append appends p to the buffer, growing it as needed.
func (buf *Buffer) Append(p []byte) {
	_, _ = buf.b.Write(p)
}

// AppendString appends s to the buffer, growing it as needed.
func (buf *Buffer) AppendString(s string) {
	_, _ = buf.b.WriteString(s)
}

// AppendByte appends a single byte.
func (buf *Buffer) AppendByte(c byte) {
	_ = buf.b.WriteByte(c)
}

// Reserve ensures the buffer has at least n more bytes of spare capacity
// without changing its length, avoiding repeated reallocation when the
// caller knows the eventual size up front.
func (buf *Buffer) Reserve(n int) {
	if cap(buf.b.B)-len(buf.b.B) >= n {
		return
	}
	grown := make([]byte, len(buf.b.B), len(buf.b.B)+n)
	copy(grown, buf.b.B)
	buf.b.B = grown
}

// Clear truncates the buffer to zero length. Capacity is retained so the
// next iteration's writes don't reallocate — the point of pooling it.
func (buf *Buffer) Clear() {
	buf.b.Reset()
}

// Len returns the number of bytes currently stored.
func (buf *Buffer) Len() int {
	return len(buf.b.B)
}

// Bytes returns the buffer's contents. The slice is only valid until the
// next mutating call or Release.
func (buf *Buffer) Bytes() []byte {
	return buf.b.B
}

// String returns a copy of the buffer's contents as a string.
func (buf *Buffer) String() string {
	return string(buf.b.B)
}
