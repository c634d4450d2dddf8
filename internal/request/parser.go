// Package request implements the streaming-free HTTP request parser
// described in spec.md §4.2: it consumes one fully-framed buffer (the
// daemon has already delimited the message, spec.md §4.7) and produces a
// populated Request plus a ParsingStatus.
package request

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const crlfcrlf = "\r\n\r\n"

// Parse populates r from a complete request buffer (headers + body).
// r must have come from Get (or otherwise be zeroed via Clear) before
// this call. Parse never returns an error directly — failures are
// recorded in r.ParsingStatus, mirroring spec.md's "parsingStatus"
// field rather than a Go error return, since the worker always has a
// Request to build a response against even on failure.
func Parse(r *Request, raw []byte) {
	r.ID = uuid.New()

	headerEnd := indexString(raw, crlfcrlf)
	if headerEnd < 0 {
		r.ParsingStatus = StatusInvalidRequest
		r.KeepAlive = false
		return
	}

	head := string(raw[:headerEnd])
	body := raw[headerEnd+len(crlfcrlf):]

	lineEnd := strings.IndexByte(head, '\n')
	var requestLine, headerBlock string
	if lineEnd < 0 {
		requestLine = head
	} else {
		requestLine = head[:lineEnd]
		headerBlock = head[lineEnd+1:]
	}
	requestLine = strings.TrimSuffix(requestLine, "\r")
	r.RawRequestLine = requestLine
	r.RawHeaders = headerBlock

	parts := strings.SplitN(requestLine, " ", 3)
	if len(parts) != 3 {
		r.ParsingStatus = StatusInvalidRequest
		r.KeepAlive = false
		return
	}
	methodTok, pathTok, versionTok := parts[0], parts[1], parts[2]

	method := ParseMethod(methodTok)
	if method == MethodUnknown {
		r.ParsingStatus = StatusInvalidRequest
		r.KeepAlive = false
		return
	}
	r.Method = method

	switch versionTok {
	case "HTTP/1.0":
		r.HTTPVersion = "HTTP/1.0"
	case "HTTP/1.1":
		r.HTTPVersion = "HTTP/1.1"
	default:
		r.ParsingStatus = StatusInvalidRequest
		r.KeepAlive = false
		return
	}

	contentLength := -1
	connectionHeader := ""
	for _, line := range splitHeaderLines(headerBlock) {
		name, value, ok := splitHeaderLine(line)
		if !ok {
			r.ParsingStatus = StatusInvalidRequest
			r.KeepAlive = false
			return
		}
		r.Header[name] = value

		switch name {
		case "content-length":
			// Open Question (spec.md §9): first matching content-length
			// wins; duplicates are not rejected.
			if contentLength < 0 {
				if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n >= 0 {
					contentLength = n
				}
			}
		case "connection":
			connectionHeader = strings.ToLower(strings.TrimSpace(value))
		case "host":
			r.Host = value
		}
	}

	// Keep-alive decision (spec.md §4.2).
	if r.HTTPVersion == "HTTP/1.1" {
		r.KeepAlive = connectionHeader != "close"
	} else {
		r.KeepAlive = false
	}

	if contentLength > 0 {
		if contentLength > len(body) {
			contentLength = len(body)
		}
		r.BodyBytes = body[:contentLength]
	} else {
		r.BodyBytes = nil
	}
	if ct, ok := r.Header["content-type"]; ok {
		r.BodyContentType = ct
	}

	rawPath, rawQuery := SplitPathQueryFragment(pathTok)
	r.URI = NormalizePath(rawPath)
	r.RawQueryString = rawQuery

	if err := decodeURLEncodedPairs(rawQuery, r.Get); err != nil {
		r.ParsingStatus = StatusInvalidRequest
		return
	}

	parseCookies(r)
	parseBasicAuth(r)

	if len(r.BodyBytes) > 0 {
		parseBody(r)
		if r.ParsingStatus != StatusOK {
			return
		}
	}

	r.ParsingStatus = StatusOK
}

func indexString(haystack []byte, needle string) int {
	return strings.Index(string(haystack), needle)
}

func splitHeaderLines(block string) []string {
	if block == "" {
		return nil
	}
	lines := strings.Split(block, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSuffix(l, "\r")
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func splitHeaderLine(line string) (name, value string, ok bool) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return "", "", false
	}
	name = strings.ToLower(strings.TrimSpace(line[:colon]))
	value = strings.TrimSpace(line[colon+1:])
	if name == "" {
		return "", "", false
	}
	return name, value, true
}

func parseCookies(r *Request) {
	header, ok := r.Header["cookie"]
	if !ok || header == "" {
		return
	}
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		var name, value string
		if eq >= 0 {
			name, value = part[:eq], part[eq+1:]
		} else {
			name = part
		}
		dn, err1 := percentDecode(name)
		dv, err2 := percentDecode(value)
		if err1 != nil || err2 != nil {
			continue
		}
		r.Cookie[dn] = dv
	}
}

func parseBasicAuth(r *Request) {
	header, ok := r.Header["authorization"]
	if !ok || len(header) < len("basic ") {
		return
	}
	if !strings.EqualFold(header[:len("basic ")], "basic ") {
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len("basic "):]))
	if err != nil {
		// Non-fatal per spec.md §7: user/password left empty, request
		// still served.
		r.User = ""
		r.Password = ""
		return
	}
	creds := string(decoded)
	colon := strings.IndexByte(creds, ':')
	if colon < 0 {
		r.User = creds
		return
	}
	r.User = creds[:colon]
	r.Password = creds[colon+1:]
}

func parseBody(r *Request) {
	contentType := firstToken(r.BodyContentType)

	switch strings.ToLower(contentType) {
	case "application/x-www-form-urlencoded":
		if err := decodeURLEncodedPairs(string(r.BodyBytes), r.Post); err != nil {
			r.ParsingStatus = StatusInvalidRequest
			return
		}
	case "multipart/form-data":
		parseMultipart(r)
	}
}

func firstToken(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		return strings.TrimSpace(contentType[:i])
	}
	return strings.TrimSpace(contentType)
}
