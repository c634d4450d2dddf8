// Package mimemap provides a fixed, deterministic extension-to-content-type
// lookup used by the response builder's ServeFile helper. It intentionally
// does not defer to the OS mime configuration (as stdlib's mime package
// does) so behavior stays identical across deployment platforms.
package mimemap

import "strings"

const defaultType = "application/octet-stream"

var byExtension = map[string]string{
	".html": "text/html;charset=utf-8",
	".htm":  "text/html;charset=utf-8",
	".css":  "text/css;charset=utf-8",
	".js":   "application/javascript;charset=utf-8",
	".mjs":  "application/javascript;charset=utf-8",
	".json": "application/json;charset=utf-8",
	".xml":  "application/xml;charset=utf-8",
	".txt":  "text/plain;charset=utf-8",
	".csv":  "text/csv;charset=utf-8",
	".md":   "text/markdown;charset=utf-8",

	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/x-icon",
	".bmp":  "image/bmp",

	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".eot":   "application/vnd.ms-fontobject",

	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".webm": "video/webm",

	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".wasm": "application/wasm",
}

// ForPath returns the content-type for a file path's extension, falling
// back to application/octet-stream when the extension is unknown or
// absent.
func ForPath(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return defaultType
	}
	ext := strings.ToLower(path[i:])
	if ct, ok := byExtension[ext]; ok {
		return ct
	}
	return defaultType
}
