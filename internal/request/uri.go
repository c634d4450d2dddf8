package request

import "strings"

// NormalizePath collapses "." and ".." segments defensively (spec.md
// §4.2 step 6). It walks segments in reverse, counting ".." as a skip
// of the segment to its left and dropping "." outright, so traversal
// past the root is simply absorbed rather than escaping it.
//
//	/a/../../etc/passwd   -> /etc/passwd
//	/a/b/../../../x       -> /x
func NormalizePath(path string) string {
	raw := strings.Split(path, "/")

	kept := make([]string, 0, len(raw))
	skip := 0
	for i := len(raw) - 1; i >= 0; i-- {
		seg := raw[i]
		switch {
		case seg == "" || seg == ".":
			continue
		case seg == "..":
			skip++
		case skip > 0:
			skip--
		default:
			kept = append(kept, seg)
		}
	}

	// kept was built back-to-front; reverse it in place.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}

	if len(kept) == 0 {
		return "/"
	}
	return "/" + strings.Join(kept, "/")
}

// SplitPathQueryFragment scans a raw request-line path for "?" and "#"
// (spec.md §4.2 step 5). A "#" aborts scanning early: anything after it
// is a fragment and is never sent to the server by a conforming client,
// so it is simply dropped rather than parsed.
func SplitPathQueryFragment(raw string) (path, query string) {
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '#':
			return raw[:i], query
		case '?':
			// Find fragment within the remainder, if any.
			rest := raw[i+1:]
			if h := strings.IndexByte(rest, '#'); h >= 0 {
				rest = rest[:h]
			}
			return raw[:i], rest
		}
	}
	return raw, ""
}
