// Package mediatype classifies content types for caching decisions.
package mediatype

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Priority hints passed to the cache manager. Higher survives longer under
// the priority and combined strategies.
const (
	PriorityOther  = 1
	PriorityImage  = 2
	PriorityAsset  = 3
	PriorityMarkup = 4
)

// byExtension covers the types a static site mostly serves. The system MIME
// tables differ between hosts, so they are not consulted.
var byExtension = map[string]string{
	".html":  "text/html; charset=utf-8",
	".htm":   "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".json":  "application/json",
	".map":   "application/json",
	".xml":   "application/xml",
	".txt":   "text/plain; charset=utf-8",
	".md":    "text/markdown; charset=utf-8",
	".csv":   "text/csv; charset=utf-8",
	".yaml":  "application/yaml",
	".yml":   "application/yaml",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".avif":  "image/avif",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".wasm":  "application/wasm",
	".pdf":   "application/pdf",
}

// Detect returns the content type of a file, from its extension when known
// and otherwise by sniffing data.
func Detect(name string, data []byte) string {
	if ct, ok := byExtension[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return mimetype.Detect(data).String()
}

// Essence strips parameters and lowercases a content type.
func Essence(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// Priority returns the cache priority for contentType:
// HTML above scripts and stylesheets, those above images, the rest last.
func Priority(contentType string) int {
	ct := Essence(contentType)
	switch {
	case ct == "text/html" || ct == "application/xhtml+xml":
		return PriorityMarkup
	case ct == "text/css" || isJavaScript(ct):
		return PriorityAsset
	case strings.HasPrefix(ct, "image/"):
		return PriorityImage
	default:
		return PriorityOther
	}
}

// Compressible reports whether contentType is worth compressing.
// Images other than SVG, fonts and archives are already compressed.
func Compressible(contentType string) bool {
	ct := Essence(contentType)
	switch {
	case strings.HasPrefix(ct, "text/"):
		return true
	case isJavaScript(ct):
		return true
	case ct == "image/svg+xml", ct == "application/wasm":
		return true
	case strings.HasSuffix(ct, "json"), strings.HasSuffix(ct, "xml"), strings.HasSuffix(ct, "yaml"):
		return true
	default:
		return false
	}
}

func isJavaScript(ct string) bool {
	return ct == "text/javascript" || ct == "application/javascript" || ct == "application/x-javascript"
}
