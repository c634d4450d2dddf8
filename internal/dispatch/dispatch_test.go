package dispatch

import (
	"errors"
	"testing"

	"github.com/yourusername/serverino/internal/request"
	"github.com/yourusername/serverino/internal/response"
)

func newReqResp() (*request.Request, *response.Output) {
	return request.Get(), response.New()
}

func TestPriorityOrderAndStopOnDirty(t *testing.T) {
	reg := New()
	var ran []string

	reg.Register("low", 0, nil, func(r *request.Request, w *response.Output) error {
		ran = append(ran, "low")
		return nil
	})
	reg.Register("high", 10, nil, func(r *request.Request, w *response.Output) error {
		ran = append(ran, "high")
		w.WriteString("handled")
		return nil
	})

	r, w := newReqResp()
	defer request.Put(r)
	defer w.Release()

	reg.Dispatch(r, w)

	if len(ran) != 1 || ran[0] != "high" {
		t.Fatalf("ran = %v, want [high] (higher priority runs first and stops dispatch once dirty)", ran)
	}
}

func TestPredicateMustAllPassToRun(t *testing.T) {
	reg := New()
	var ran bool

	reg.Register("gated", 0, []Predicate{
		func(r *request.Request) bool { return r.URI == "/allowed" },
	}, func(r *request.Request, w *response.Output) error {
		ran = true
		w.WriteString("x")
		return nil
	})

	r, w := newReqResp()
	defer request.Put(r)
	defer w.Release()
	r.URI = "/denied"

	reg.Dispatch(r, w)
	if ran {
		t.Fatal("handler ran despite failing predicate")
	}
}

func TestUntaggedFallbackOnlyWithNoTagged(t *testing.T) {
	reg := New()
	var ran bool
	reg.RegisterFallback("fallback", func(r *request.Request, w *response.Output) error {
		ran = true
		return nil
	})

	r, w := newReqResp()
	defer request.Put(r)
	defer w.Release()

	reg.Dispatch(r, w)
	if !ran {
		t.Fatal("expected sole untagged fallback to run")
	}
}

func TestUntaggedFallbackSkippedWhenMultiple(t *testing.T) {
	reg := New()
	var ran int
	reg.RegisterFallback("a", func(r *request.Request, w *response.Output) error { ran++; return nil })
	reg.RegisterFallback("b", func(r *request.Request, w *response.Output) error { ran++; return nil })

	r, w := newReqResp()
	defer request.Put(r)
	defer w.Release()

	reg.Dispatch(r, w)
	if ran != 0 {
		t.Fatalf("expected no fallback to run with multiple untagged candidates, ran = %d", ran)
	}
}

func TestHandlerErrorResetsTo500(t *testing.T) {
	reg := New()
	reg.Register("boom", 0, nil, func(r *request.Request, w *response.Output) error {
		w.WriteString("partial")
		return errors.New("boom")
	})

	r, w := newReqResp()
	defer request.Put(r)
	defer w.Release()
	w.KeepAlive = true

	reg.Dispatch(r, w)

	if w.Status != 500 {
		t.Fatalf("Status = %d, want 500", w.Status)
	}
	if w.SendBody {
		t.Fatal("expected SendBody false after handler error")
	}
	if !w.KeepAlive {
		t.Fatal("expected pre-error keep-alive decision retained")
	}
}

func TestHandlerPanicResetsTo500(t *testing.T) {
	reg := New()
	reg.Register("panics", 0, nil, func(r *request.Request, w *response.Output) error {
		panic("kaboom")
	})

	r, w := newReqResp()
	defer request.Put(r)
	defer w.Release()

	reg.Dispatch(r, w)

	if w.Status != 500 {
		t.Fatalf("Status = %d, want 500", w.Status)
	}
}

func TestRouteLogRecordsInvokedHandlers(t *testing.T) {
	reg := New()
	reg.Register("only", 0, nil, func(r *request.Request, w *response.Output) error {
		w.WriteString("x")
		return nil
	})

	r, w := newReqResp()
	defer request.Put(r)
	defer w.Release()

	reg.Dispatch(r, w)

	if len(r.Route) != 1 || r.Route[0] != "only" {
		t.Fatalf("Route = %v, want [only]", r.Route)
	}
}
