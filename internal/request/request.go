package request

import (
	"os"
	"sync"

	"github.com/google/uuid"
)

// ParsingStatus reports the outcome of Parse (spec.md §3 parsingStatus).
type ParsingStatus int

const (
	StatusOK ParsingStatus = iota
	StatusMaxUploadSizeExceeded
	StatusInvalidBody
	StatusInvalidRequest
)

// FormData is one multipart/form-data part (spec.md §3).
type FormData struct {
	Name        string
	ContentType string

	// Exactly one of (Data) or (IsFile, Filename, SpillPath) applies.
	IsFile    bool
	Data      []byte
	Filename  string
	SpillPath string
}

// Request is the immutable-once-parsed, reused-between-iterations model
// spec.md §3 describes. It is pooled: callers obtain one with Get and
// must call Clear before returning it, or before reuse for the next
// socket iteration.
type Request struct {
	ID uuid.UUID

	Method         Method
	URI            string
	RawQueryString string
	RawHeaders     string
	RawRequestLine string
	HTTPVersion    string // "HTTP/1.0" or "HTTP/1.1"

	Host     string
	Worker   int
	User     string
	Password string

	Header map[string]string
	Cookie map[string]string
	Get    map[string]string
	Post   map[string]string
	Form   map[string]FormData

	BodyBytes       []byte
	BodyContentType string

	// Route is the ordered log of handler identifiers that observed
	// this request (spec.md §3).
	Route []string

	ParsingStatus ParsingStatus

	// KeepAlive is decided during parsing (spec.md §4.2 "Keep-alive
	// decision") and is read by the worker to decide whether to loop
	// again after this request.
	KeepAlive bool

	spillFiles []string
}

var pool = sync.Pool{
	New: func() any {
		return &Request{
			Header: make(map[string]string, 16),
			Cookie: make(map[string]string, 4),
			Get:    make(map[string]string, 8),
			Post:   make(map[string]string, 8),
			Form:   make(map[string]FormData, 4),
			Route:  make([]string, 0, 8),
		}
	},
}

// Get checks out a Request from the shared pool.
func Get() *Request {
	return pool.Get().(*Request)
}

// Put clears r and returns it to the shared pool.
func Put(r *Request) {
	r.Clear()
	pool.Put(r)
}

// Clear resets the Request between iterations: buffers truncated,
// mappings emptied, spilled files unlinked (spec.md §3 invariants,
// testable property 5).
func (r *Request) Clear() {
	for _, path := range r.spillFiles {
		_ = os.Remove(path)
	}
	r.spillFiles = r.spillFiles[:0]

	r.ID = uuid.UUID{}
	r.Method = MethodUnknown
	r.URI = ""
	r.RawQueryString = ""
	r.RawHeaders = ""
	r.RawRequestLine = ""
	r.HTTPVersion = ""
	r.Host = ""
	r.Worker = 0
	r.User = ""
	r.Password = ""
	r.BodyBytes = nil
	r.BodyContentType = ""
	r.ParsingStatus = StatusOK
	r.KeepAlive = false

	clearStringMap(r.Header)
	clearStringMap(r.Cookie)
	clearStringMap(r.Get)
	clearStringMap(r.Post)
	for k := range r.Form {
		delete(r.Form, k)
	}
	r.Route = r.Route[:0]
}

func clearStringMap(m map[string]string) {
	for k := range m {
		delete(m, k)
	}
}

// trackSpillFile records a multipart-upload temp file so Clear unlinks
// it later. Clear is the only place these files are removed: a process
// exit that skips Clear (such as the watchdog's forced exit) leaves
// them on disk.
func (r *Request) trackSpillFile(path string) {
	r.spillFiles = append(r.spillFiles, path)
}

// LogRoute appends a handler identifier to the route log (spec.md §3).
func (r *Request) LogRoute(handlerID string) {
	r.Route = append(r.Route, handlerID)
}
