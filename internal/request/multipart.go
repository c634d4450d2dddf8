package request

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

var uploadCounter uint64

// nextUploadName produces the spill filename pattern spec.md §6 requires:
// upload_<unix-seconds>_<pid>_<5-digit-counter><original-extension>.
func nextUploadName(originalFilename string) string {
	n := atomic.AddUint64(&uploadCounter, 1) % 100000
	ext := filepath.Ext(originalFilename)
	return fmt.Sprintf("upload_%d_%d_%05d%s", time.Now().Unix(), os.Getpid(), n, ext)
}

// parseMultipart implements spec.md §4.2 step 8. On any structural
// failure it sets StatusInvalidBody, clears the form, and deletes any
// spill files already created for this request.
func parseMultipart(r *Request) {
	boundary := extractBoundary(r.BodyContentType, r.BodyBytes)
	if boundary == "" {
		invalidBody(r)
		return
	}

	delim := "--" + boundary
	body := r.BodyBytes

	start := indexOf(body, delim)
	if start < 0 {
		invalidBody(r)
		return
	}
	cursor := start + len(delim)

	for {
		if cursor+2 <= len(body) && body[cursor] == '-' && body[cursor+1] == '-' {
			// Terminal boundary.
			return
		}
		if cursor+2 > len(body) || body[cursor] != '\r' || body[cursor+1] != '\n' {
			invalidBody(r)
			return
		}
		cursor += 2

		next := indexOf(body[cursor:], delim)
		if next < 0 {
			invalidBody(r)
			return
		}
		chunk := body[cursor : cursor+next]
		cursor += next + len(delim)

		// Each chunk must end with CRLF before the next delimiter.
		if len(chunk) < 2 || chunk[len(chunk)-2] != '\r' || chunk[len(chunk)-1] != '\n' {
			invalidBody(r)
			return
		}
		chunk = chunk[:len(chunk)-2]

		if err := parseChunk(r, chunk); err != nil {
			invalidBody(r)
			return
		}
	}
}

func invalidBody(r *Request) {
	for k, fd := range r.Form {
		if fd.IsFile && fd.SpillPath != "" {
			_ = os.Remove(fd.SpillPath)
		}
		delete(r.Form, k)
	}
	r.ParsingStatus = StatusInvalidBody
}

// extractBoundary reads the boundary parameter from the content-type
// header, falling back to sniffing "--<boundary>" on the first
// non-empty line of the body (spec.md §4.2 step 8).
func extractBoundary(contentType string, body []byte) string {
	for _, param := range strings.Split(contentType, ";") {
		param = strings.TrimSpace(param)
		if strings.HasPrefix(strings.ToLower(param), "boundary=") {
			b := param[len("boundary="):]
			b = strings.Trim(b, `"`)
			return b
		}
	}

	for _, line := range strings.Split(string(body), "\r\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "--") {
			return strings.TrimPrefix(line, "--")
		}
		break
	}
	return ""
}

func indexOf(haystack []byte, needle string) int {
	return strings.Index(string(haystack), needle)
}

// parseChunk parses one multipart part: local headers line-by-line
// until a blank line, then interprets content-disposition/content-type
// and either spills to a temp file (filename present) or retains the
// bytes inline.
func parseChunk(r *Request, chunk []byte) error {
	headerEnd := indexOf(chunk, "\r\n\r\n")
	if headerEnd < 0 {
		return fmt.Errorf("request: multipart chunk missing header terminator")
	}
	headerBlock := string(chunk[:headerEnd])
	data := chunk[headerEnd+4:]

	var disposition, contentType string
	for _, line := range strings.Split(headerBlock, "\r\n") {
		name, value, ok := splitHeaderLine(line)
		if !ok {
			continue
		}
		switch name {
		case "content-disposition":
			disposition = value
		case "content-type":
			contentType = value
		}
	}
	if disposition == "" {
		return fmt.Errorf("request: multipart chunk missing content-disposition")
	}

	fieldName := dispositionParam(disposition, "name")
	filename, hasFilename := dispositionParamOK(disposition, "filename")

	fd := FormData{Name: fieldName, ContentType: contentType}

	if hasFilename {
		spillPath := filepath.Join(os.TempDir(), nextUploadName(filename))
		if err := os.WriteFile(spillPath, data, 0o600); err != nil {
			return err
		}
		r.trackSpillFile(spillPath)
		fd.IsFile = true
		fd.Filename = filename
		fd.SpillPath = spillPath
	} else {
		fd.Data = append([]byte(nil), data...)
	}

	r.Form[fieldName] = fd
	return nil
}

func dispositionParam(disposition, key string) string {
	v, _ := dispositionParamOK(disposition, key)
	return v
}

func dispositionParamOK(disposition, key string) (string, bool) {
	for _, part := range strings.Split(disposition, ";") {
		part = strings.TrimSpace(part)
		prefix := key + "="
		if strings.HasPrefix(part, prefix) {
			return strings.Trim(part[len(prefix):], `"`), true
		}
	}
	return "", false
}
