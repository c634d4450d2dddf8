// Package dispatch implements the handler registry and dispatcher of
// spec.md §4.4: tagged handlers are tried in descending-priority,
// declaration-stable order, gated by route predicates, until one
// "dirties" the response; an untagged fallback only applies when no
// tagged handler exists and exactly one untagged candidate is
// registered.
package dispatch

import (
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/yourusername/serverino/internal/metrics"
	"github.com/yourusername/serverino/internal/request"
	"github.com/yourusername/serverino/internal/response"
)

// Predicate is a first-class route predicate (spec.md §9): a boolean
// function over a Request controlling whether a handler is considered.
type Predicate func(*request.Request) bool

// Equals returns a Predicate comparing the request URI to a literal
// path, the concrete example spec.md §9 calls out for "equality on
// routes".
func Equals(path string) Predicate {
	return func(r *request.Request) bool { return r.URI == path }
}

// HandlerFunc is the uniform closure type every registered handler is
// adapted to, regardless of which parameter shape the caller used to
// register it (spec.md §9 "Dispatch parameter polymorphism").
type HandlerFunc func(r *request.Request, w *response.Output) error

type descriptor struct {
	id         string
	priority   int
	tagged     bool
	predicates []Predicate
	fn         HandlerFunc
	seq        int
}

// Registry holds the declared handlers and lifecycle hooks for one
// worker process.
type Registry struct {
	mu       sync.Mutex
	handlers []*descriptor
	startup  []func()
	shutdown []func()
	seq      int
	debug    bool

	sorted []*descriptor
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// SetDebug toggles per-dispatch decision logging (which handler ran,
// which predicates rejected a candidate), driven by SERVERINO_DEBUG.
func (reg *Registry) SetDebug(debug bool) {
	reg.mu.Lock()
	reg.debug = debug
	reg.mu.Unlock()
}

// Register adds a tagged handler taking both Request and Response
// (spec.md §4.4 "parameter shape (Request,Response)").
func (reg *Registry) Register(id string, priority int, predicates []Predicate, fn HandlerFunc) {
	reg.add(id, priority, true, predicates, fn)
}

// RegisterRequestOnly adapts a (Request) handler into the uniform
// closure type (spec.md §9), for handlers that never touch the
// response directly (e.g. logging-only endpoints layered in front of
// another handler via priority).
func (reg *Registry) RegisterRequestOnly(id string, priority int, predicates []Predicate, fn func(*request.Request) error) {
	reg.add(id, priority, true, predicates, func(r *request.Request, _ *response.Output) error {
		return fn(r)
	})
}

// RegisterResponseOnly adapts a (Response) handler into the uniform
// closure type (spec.md §9), for handlers that never need the request
// body (e.g. static health checks).
func (reg *Registry) RegisterResponseOnly(id string, priority int, predicates []Predicate, fn func(*response.Output) error) {
	reg.add(id, priority, true, predicates, func(_ *request.Request, w *response.Output) error {
		return fn(w)
	})
}

// RegisterFallback adds an untagged handler, eligible only when no
// tagged handler is registered and it is the sole untagged candidate
// (spec.md §4.4).
func (reg *Registry) RegisterFallback(id string, fn HandlerFunc) {
	reg.add(id, 0, false, nil, fn)
}

func (reg *Registry) add(id string, priority int, tagged bool, predicates []Predicate, fn HandlerFunc) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.handlers = append(reg.handlers, &descriptor{
		id:         id,
		priority:   priority,
		tagged:     tagged,
		predicates: predicates,
		fn:         fn,
		seq:        reg.seq,
	})
	reg.seq++
	reg.sorted = nil
}

// OnStartup registers a hook run once before the request loop begins
// (spec.md §4.4 "Lifecycle hooks").
func (reg *Registry) OnStartup(fn func()) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.startup = append(reg.startup, fn)
}

// OnShutdown registers a hook run on any self-terminating exit path —
// never on a watchdog-forced exit (spec.md §4.4).
func (reg *Registry) OnShutdown(fn func()) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.shutdown = append(reg.shutdown, fn)
}

// RunStartupHooks invokes every registered startup hook, in
// registration order.
func (reg *Registry) RunStartupHooks() {
	reg.mu.Lock()
	hooks := append([]func(){}, reg.startup...)
	reg.mu.Unlock()
	for _, h := range hooks {
		h()
	}
}

// RunShutdownHooks invokes every registered shutdown hook, in
// registration order.
func (reg *Registry) RunShutdownHooks() {
	reg.mu.Lock()
	hooks := append([]func(){}, reg.shutdown...)
	reg.mu.Unlock()
	for _, h := range hooks {
		h()
	}
}

func (reg *Registry) sortedHandlers() []*descriptor {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.sorted != nil {
		return reg.sorted
	}
	sorted := append([]*descriptor{}, reg.handlers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].priority != sorted[j].priority {
			return sorted[i].priority > sorted[j].priority
		}
		return sorted[i].seq < sorted[j].seq
	})
	reg.sorted = sorted
	return sorted
}

// Dispatch runs the registered handlers against r/w per spec.md §4.4:
// tagged handlers in priority order, each gated by its predicates,
// until one dirties the response; if no tagged handlers are
// registered, the sole untagged handler (if exactly one exists) runs
// unconditionally.
//
// A handler that panics or returns an error is caught: the response is
// reset to status 500 with no body, dispatch stops, and the
// pre-dispatch keep-alive decision is left untouched (spec.md §4.4,
// §7 "Handler threw").
func (reg *Registry) Dispatch(r *request.Request, w *response.Output) {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
		metrics.RequestsHandled.WithLabelValues(strconv.Itoa(w.Status)).Inc()
	}()

	keepAlive := w.KeepAlive

	var tagged, untagged []*descriptor
	for _, d := range reg.sortedHandlers() {
		if d.tagged {
			tagged = append(tagged, d)
		} else {
			untagged = append(untagged, d)
		}
	}

	if len(tagged) == 0 {
		if len(untagged) == 1 {
			reg.invoke(untagged[0], r, w, keepAlive)
		}
		return
	}

	for _, d := range tagged {
		if !predicatesAccept(d.predicates, r) {
			if reg.debug {
				log.Printf("serverino: dispatch: %s: handler %q rejected by predicates", r.ID, d.id)
			}
			continue
		}
		if reg.debug {
			log.Printf("serverino: dispatch: %s: handler %q selected", r.ID, d.id)
		}
		reg.invoke(d, r, w, keepAlive)
		if w.Dirty {
			return
		}
	}
}

func predicatesAccept(predicates []Predicate, r *request.Request) bool {
	for _, p := range predicates {
		if !p(r) {
			return false
		}
	}
	return true
}

func (reg *Registry) invoke(d *descriptor, r *request.Request, w *response.Output, preErrorKeepAlive bool) {
	r.LogRoute(d.id)

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("serverino: dispatch: handler %q panicked: %v", d.id, rec)
			resetToServerError(w, preErrorKeepAlive)
		}
	}()

	if err := d.fn(r, w); err != nil {
		log.Printf("serverino: dispatch: handler %q returned error: %v", d.id, err)
		resetToServerError(w, preErrorKeepAlive)
	}
}

func resetToServerError(w *response.Output, keepAlive bool) {
	w.Clear()
	w.KeepAlive = keepAlive
	w.SetStatus(500)
	w.SendBody = false
}
