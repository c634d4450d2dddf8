// Package response implements the Response/Output builder of spec.md
// §4.3: it accumulates body bytes, status, headers and cookies, then
// assembles the outbound status-line + headers + body on BuildHeaders.
package response

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/serverino/internal/buffer"
	"github.com/yourusername/serverino/internal/cookie"
	"github.com/yourusername/serverino/internal/mimemap"
)

// reserved lists the headers a user handler may never set directly
// (spec.md §3 "Reserved headers").
var reserved = map[string]bool{
	"content-length":    true,
	"status":            true,
	"transfer-encoding": true,
}

type headerPair struct {
	key   string
	value string
}

// Output is the per-iteration response builder. The struct itself is
// allocated by New; its two buffers come from the shared buffer pool and
// go back to it on Release. Clear resets an Output in place.
type Output struct {
	Status      int
	HTTPVersion string
	KeepAlive   bool

	headers []headerPair
	cookies []cookie.Cookie

	SendBody bool
	Dirty    bool

	HeadersBuffer *buffer.Buffer
	SendBuffer    *buffer.Buffer

	Timeout time.Duration
}

// New allocates a fresh Output with its pooled buffers checked out.
// Call Release when the Output is no longer needed.
func New() *Output {
	return &Output{
		Status:   200,
		SendBody: true,

		HeadersBuffer: buffer.Get(),
		SendBuffer:    buffer.Get(),
	}
}

// Release returns the Output's pooled buffers to their shared pools.
func (o *Output) Release() {
	o.HeadersBuffer.Release()
	o.SendBuffer.Release()
}

// Clear resets the Output between iterations (spec.md §3 lifecycle).
func (o *Output) Clear() {
	o.Status = 200
	o.KeepAlive = false
	o.headers = o.headers[:0]
	o.cookies = o.cookies[:0]
	o.SendBody = true
	o.Dirty = false
	o.HeadersBuffer.Clear()
	o.SendBuffer.Clear()
	o.Timeout = 0
}

// Write appends to the send buffer and marks the response dirty
// (spec.md §4.3).
func (o *Output) Write(p []byte) {
	o.SendBuffer.Append(p)
	o.Dirty = true
}

// WriteString is the string-argument overload of Write.
func (o *Output) WriteString(s string) {
	o.SendBuffer.AppendString(s)
	o.Dirty = true
}

// SetStatus sets the status code and marks the response dirty.
func (o *Output) SetStatus(code int) {
	o.Status = code
	o.Dirty = true
}

// AddHeader adds a user header, lowercasing the key. Reserved keys are
// rejected with a logged warning and otherwise ignored (spec.md §4.3,
// §7 "Reserved header set by user").
func (o *Output) AddHeader(key, value string) {
	key = strings.ToLower(key)
	if reserved[key] {
		log.Printf("serverino: response: ignoring reserved header %q set by handler", key)
		return
	}
	o.headers = append(o.headers, headerPair{key, value})
	o.Dirty = true
}

// AddHeaderDuration is the addHeader(k, Duration) overload: it stores
// an absolute HTTP-date computed as now + d.
func (o *Output) AddHeaderDuration(key string, d time.Duration) {
	o.AddHeader(key, cookie.FormatHTTPDateIn(d))
}

// SetCookie requires c.Valid; an invalid cookie is an explicit
// programmer-error failure (spec.md §7).
func (o *Output) SetCookie(c cookie.Cookie) error {
	if !c.Valid {
		return fmt.Errorf("response: setCookie called with invalid cookie %q", c.Name)
	}
	o.cookies = append(o.cookies, c)
	o.Dirty = true
	return nil
}

// hasHeader reports whether the user already set this (lowercased) key.
func (o *Output) hasHeader(key string) bool {
	for _, h := range o.headers {
		if h.key == key {
			return true
		}
	}
	return false
}

// ServeFile stats path, guesses a content-type from the extension
// (unless one is already set), and reads the whole file into the send
// buffer, so BuildHeaders emits the file size as content-length
// (spec.md §4.3). A missing or non-regular file logs a warning and
// returns false without touching the buffer.
func (o *Output) ServeFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("serverino: response: serveFile: %v", err)
		return false
	}
	if !info.Mode().IsRegular() {
		log.Printf("serverino: response: serveFile: %q is not a regular file", path)
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("serverino: response: serveFile: %v", err)
		return false
	}

	if !o.hasHeader("content-type") {
		o.AddHeader("content-type", mimemap.ForPath(path))
	}
	o.SendBuffer.Append(data)
	o.Dirty = true
	return true
}

// BuildHeaders assembles the status line, headers, and cookies into
// HeadersBuffer in the exact order spec.md §4.3 specifies. If SendBody
// is false, SendBuffer is cleared afterward.
func (o *Output) BuildHeaders() {
	o.HeadersBuffer.Clear()

	version := o.HTTPVersion
	if version == "" {
		version = "HTTP/1.1"
	}
	o.HeadersBuffer.AppendString(version)
	o.HeadersBuffer.AppendByte(' ')
	o.HeadersBuffer.AppendString(strconv.Itoa(o.Status))
	o.HeadersBuffer.AppendByte(' ')
	o.HeadersBuffer.AppendString(statusText(o.Status))
	o.HeadersBuffer.AppendString("\r\n")

	if o.KeepAlive {
		o.HeadersBuffer.AppendString("connection: keep-alive\r\n")
	} else {
		o.HeadersBuffer.AppendString("connection: close\r\n")
	}

	contentLength := 0
	if o.SendBody {
		contentLength = o.SendBuffer.Len()
	}
	o.HeadersBuffer.AppendString("content-length: ")
	o.HeadersBuffer.AppendString(strconv.Itoa(contentLength))
	o.HeadersBuffer.AppendString("\r\n")

	sawContentType := false
	for _, h := range o.headers {
		// content-length/transfer-encoding are rejected by AddHeader
		// already; this is the defensive re-check BuildHeaders itself
		// applies per spec, in case a header slipped in another way.
		if h.key == "content-length" || h.key == "transfer-encoding" {
			continue
		}
		if h.key == "content-type" {
			sawContentType = true
		}
		o.HeadersBuffer.AppendString(h.key)
		o.HeadersBuffer.AppendString(": ")
		o.HeadersBuffer.AppendString(h.value)
		o.HeadersBuffer.AppendString("\r\n")
	}

	if !sawContentType && o.SendBody {
		o.HeadersBuffer.AppendString("content-type: text/html;charset=utf-8\r\n")
	}

	for _, c := range o.cookies {
		o.HeadersBuffer.AppendString("set-cookie: ")
		o.HeadersBuffer.AppendString(cookie.SetCookieHeaderValue(c))
		o.HeadersBuffer.AppendString("\r\n")
	}

	o.HeadersBuffer.AppendString("\r\n")

	if !o.SendBody {
		o.SendBuffer.Clear()
	}
}
