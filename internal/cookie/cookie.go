// Package cookie implements the Cookie value type spec.md §3 describes
// and the RFC-style HTTP-date formatter used both for cookie expiry and
// for response Date-ish headers (spec.md §6).
package cookie

import (
	"fmt"
	"time"
)

// SameSite mirrors the SameSite cookie attribute values.
type SameSite int

const (
	SameSiteNotSet SameSite = iota
	SameSiteStrict
	SameSiteLax
	SameSiteNone
)

func (s SameSite) String() string {
	switch s {
	case SameSiteStrict:
		return "Strict"
	case SameSiteLax:
		return "Lax"
	case SameSiteNone:
		return "None"
	default:
		return ""
	}
}

// Cookie is a value type; it does not outlive the response iteration
// that created it (spec.md §3).
type Cookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool

	// Expire and MaxAge are mutually exclusive. Setting one clears the
	// other, enforced by SetExpire/SetMaxAge rather than by field
	// visibility, since Cookie is a plain value type handlers populate
	// directly.
	Expire   time.Time
	MaxAge   int
	hasMax   bool
	SameSite SameSite

	// Valid must be true before the response builder will accept this
	// cookie (spec.md §4.3 setCookie). A Cookie built with New is valid
	// once it has a non-empty Name.
	Valid bool
}

// New returns a Cookie with Name and Value set and Valid true, provided
// name is non-empty.
func New(name, value string) Cookie {
	return Cookie{Name: name, Value: value, Valid: name != ""}
}

// SetExpire sets an absolute expiry and clears any MaxAge previously set.
func (c *Cookie) SetExpire(t time.Time) {
	c.Expire = t
	c.MaxAge = 0
	c.hasMax = false
}

// SetMaxAge sets a relative expiry (seconds) and clears any Expire
// previously set.
func (c *Cookie) SetMaxAge(seconds int) {
	c.MaxAge = seconds
	c.hasMax = true
	c.Expire = time.Time{}
}

// Invalidate returns a cookie that instructs the client to delete the
// named cookie: empty value, negative max-age.
func Invalidate(name string) Cookie {
	c := New(name, "")
	c.SetMaxAge(-1)
	return c
}

// attribute assembles "set-cookie" header value in the exact order
// spec.md §4.3 requires: Name=Value, Max-Age|Expires, path, domain,
// SameSite (implying Secure when None), Secure, HttpOnly.
func (c Cookie) attribute() string {
	out := c.Name + "=" + c.Value

	if c.hasMax {
		out += fmt.Sprintf("; Max-Age=%d", c.MaxAge)
	} else if !c.Expire.IsZero() {
		out += "; Expires=" + FormatHTTPDate(c.Expire)
	}
	if c.Path != "" {
		out += "; path=" + c.Path
	}
	if c.Domain != "" {
		out += "; domain=" + c.Domain
	}

	secure := c.Secure
	if c.SameSite != SameSiteNotSet {
		out += "; SameSite=" + c.SameSite.String()
		if c.SameSite == SameSiteNone {
			secure = true
		}
	}
	if secure {
		out += "; Secure"
	}
	if c.HTTPOnly {
		out += "; HttpOnly"
	}
	return out
}

// SetCookieHeaderValue returns the value to send for a "set-cookie"
// header for this cookie. Callers must not invoke this on an invalid
// cookie (spec.md §7, "Invalid Cookie ... Surfaced as explicit failure").
func SetCookieHeaderValue(c Cookie) string {
	return c.attribute()
}
