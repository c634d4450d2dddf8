package response

import (
	"strings"
	"testing"

	"github.com/yourusername/serverino/internal/cookie"
)

func TestSimpleGETResponse(t *testing.T) {
	o := New()
	defer o.Release()

	o.HTTPVersion = "HTTP/1.1"
	o.KeepAlive = true
	o.WriteString("ok")
	o.BuildHeaders()

	want := "HTTP/1.1 200 OK\r\nconnection: keep-alive\r\ncontent-length: 2\r\ncontent-type: text/html;charset=utf-8\r\n\r\n"
	if got := o.HeadersBuffer.String(); got != want {
		t.Fatalf("headers = %q, want %q", got, want)
	}
	if got := o.SendBuffer.String(); got != "ok" {
		t.Fatalf("body = %q, want ok", got)
	}
}

func TestSendBodyFalseSuppressesBody(t *testing.T) {
	o := New()
	defer o.Release()

	o.HTTPVersion = "HTTP/1.1"
	o.KeepAlive = true
	o.SendBody = false
	o.WriteString("ignored")
	o.BuildHeaders()

	if !strings.Contains(o.HeadersBuffer.String(), "content-length: 0") {
		t.Fatalf("expected content-length: 0, got %q", o.HeadersBuffer.String())
	}
	if o.SendBuffer.Len() != 0 {
		t.Fatalf("expected send buffer cleared, got %q", o.SendBuffer.String())
	}
}

func TestReservedHeaderIsIgnored(t *testing.T) {
	o := New()
	defer o.Release()

	o.AddHeader("Content-Length", "999")
	o.AddHeader("Transfer-Encoding", "chunked")
	o.AddHeader("Status", "201")
	o.BuildHeaders()

	headers := o.HeadersBuffer.String()
	if strings.Contains(headers, "999") || strings.Contains(headers, "chunked") {
		t.Fatalf("reserved header leaked into output: %q", headers)
	}
}

func TestSetCookieRequiresValid(t *testing.T) {
	o := New()
	defer o.Release()

	var invalid cookie.Cookie
	if err := o.SetCookie(invalid); err == nil {
		t.Fatal("expected error for invalid cookie")
	}

	valid := cookie.New("session", "abc")
	if err := o.SetCookie(valid); err != nil {
		t.Fatalf("unexpected error for valid cookie: %v", err)
	}
	o.BuildHeaders()
	if !strings.Contains(o.HeadersBuffer.String(), "set-cookie: session=abc") {
		t.Fatalf("expected set-cookie header, got %q", o.HeadersBuffer.String())
	}
}

func TestCookieSameSiteNoneImpliesSecureInOutput(t *testing.T) {
	o := New()
	defer o.Release()

	c := cookie.New("s", "v")
	c.SameSite = cookie.SameSiteNone
	_ = o.SetCookie(c)
	o.BuildHeaders()

	headers := o.HeadersBuffer.String()
	if !strings.Contains(headers, "SameSite=None") || !strings.Contains(headers, "Secure") {
		t.Fatalf("expected SameSite=None to imply Secure, got %q", headers)
	}
}

func TestHeaderEmissionOrder(t *testing.T) {
	o := New()
	defer o.Release()

	o.HTTPVersion = "HTTP/1.1"
	o.KeepAlive = true
	o.AddHeader("x-custom", "v")
	_ = o.SetCookie(cookie.New("a", "1"))
	o.WriteString("body")
	o.BuildHeaders()

	headers := o.HeadersBuffer.String()
	statusIdx := strings.Index(headers, "HTTP/1.1 200")
	connIdx := strings.Index(headers, "connection:")
	clIdx := strings.Index(headers, "content-length:")
	customIdx := strings.Index(headers, "x-custom:")
	cookieIdx := strings.Index(headers, "set-cookie:")

	if !(statusIdx < connIdx && connIdx < clIdx && clIdx < customIdx && customIdx < cookieIdx) {
		t.Fatalf("header emission out of order: %q", headers)
	}
}
