package dispatch

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourusername/serverino/internal/request"
)

// RequireBasicAuth returns a Predicate gating a handler behind the
// Basic-auth credentials the parser already decoded onto the request
// (spec.md §3 Request.user/Request.password).
func RequireBasicAuth(validate func(user, pass string) bool) Predicate {
	return func(r *request.Request) bool {
		if r.User == "" {
			return false
		}
		return validate(r.User, r.Password)
	}
}

// RequireBearerJWT returns a Predicate gating a handler behind a valid
// "authorization: Bearer <token>" header, generalizing bolt's JWT
// middleware (a request-wrapping chain) into a predicate that simply
// rejects dispatch of this handler when the token doesn't verify —
// spec.md's dispatch model has no middleware chain, only predicates.
func RequireBearerJWT(keyFunc jwt.Keyfunc, opts ...jwt.ParserOption) Predicate {
	parser := jwt.NewParser(opts...)
	return func(r *request.Request) bool {
		header, ok := r.Header["authorization"]
		if !ok || len(header) < len("bearer ") {
			return false
		}
		if !strings.EqualFold(header[:len("bearer ")], "bearer ") {
			return false
		}
		token := strings.TrimSpace(header[len("bearer "):])

		parsed, err := parser.Parse(token, keyFunc)
		if err != nil || !parsed.Valid {
			return false
		}
		return true
	}
}
