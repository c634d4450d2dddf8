// Package serverino embeds an HTTP/1.x worker server: user code
// registers endpoint handlers on an App, and Run hands control to the
// worker lifecycle described in SPEC_FULL.md §4.5 — connect to the
// daemon's control socket, drop privileges, and serve requests off it
// until a self-termination trigger fires.
//
// Example:
//
//	app := serverino.New()
//	app.Get("/hello", func(r *serverino.Request, w *serverino.Response) error {
//	    w.WriteString("hello")
//	    return nil
//	})
//	log.Fatal(app.Run())
package serverino

import (
	"github.com/yourusername/serverino/internal/config"
	"github.com/yourusername/serverino/internal/dispatch"
	"github.com/yourusername/serverino/internal/request"
	"github.com/yourusername/serverino/internal/response"
	"github.com/yourusername/serverino/worker"
)

// Request and Response are re-exported so handler signatures never
// need to import internal/ packages directly.
type Request = request.Request
type Response = response.Output

// Predicate gates whether a tagged handler runs for a given request.
type Predicate = dispatch.Predicate

// App is the embeddable server: a handler registry plus configuration,
// following the Bolt `core.App` shape (router + config + lifecycle in
// one value, New()/NewWithConfig() constructors).
type App struct {
	registry *dispatch.Registry
	cfg      config.Config
}

// New returns an App with the default configuration.
func New() *App {
	return NewWithConfig(config.Default())
}

// NewWithConfig returns an App using cfg instead of the defaults.
func NewWithConfig(cfg config.Config) *App {
	return &App{registry: dispatch.New(), cfg: cfg}
}

// Get registers a tagged handler at priority 0 that is eligible only
// when the request URI equals path exactly (spec.md §4.4). The request
// method is not checked. Use Handle or HandleFunc for another priority
// or other predicates.
func (a *App) Get(path string, fn func(*Request, *Response) error) {
	a.Handle(path, 0, fn)
}

// Handle registers a tagged handler matching an exact request URI at
// the given priority.
func (a *App) Handle(path string, priority int, fn func(*Request, *Response) error) {
	a.registry.Register(path, priority, []Predicate{dispatch.Equals(path)}, fn)
}

// HandleFunc registers a tagged handler gated by arbitrary predicates
// instead of a literal path match.
func (a *App) HandleFunc(id string, priority int, predicates []Predicate, fn func(*Request, *Response) error) {
	a.registry.Register(id, priority, predicates, fn)
}

// Fallback registers the sole handler eligible when no tagged handler
// is registered (spec.md §4.4 "untagged" dispatch).
func (a *App) Fallback(id string, fn func(*Request, *Response) error) {
	a.registry.RegisterFallback(id, fn)
}

// OnStartup registers a hook run once before the request loop begins.
func (a *App) OnStartup(fn func()) { a.registry.OnStartup(fn) }

// OnShutdown registers a hook run on self-terminating exit paths.
func (a *App) OnShutdown(fn func()) { a.registry.OnShutdown(fn) }

// RequireBasicAuth and RequireBearerJWT expose the auth predicates of
// internal/dispatch for use in HandleFunc's predicate list.
var (
	RequireBasicAuth = dispatch.RequireBasicAuth
	RequireBearerJWT = dispatch.RequireBearerJWT
)

// Run bootstraps from the process environment (SERVERINO_DAEMON,
// SERVERINO_SOCKET, SERVERINO_DYNAMIC_WORKER) and blocks in the
// worker's request loop until a self-termination trigger fires.
func (a *App) Run() error {
	env, err := worker.ParseEnv()
	if err != nil {
		return err
	}
	w := worker.New(env, a.cfg, a.registry)
	return w.Run()
}
