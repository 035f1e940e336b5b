package model

import (
	"path/filepath"
	"strings"
)

// PreviewKind classifies how a file can be rendered inline.
type PreviewKind int

const (
	KindNone PreviewKind = iota
	KindImage
	KindPDF
	KindVideo
	KindAudio
	KindText
)

func (k PreviewKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindText:
		return "text"
	default:
		return "none"
	}
}

// kindRule maps a MIME-type predicate to a preview kind. Rules are evaluated
// top-down and the first match wins, so specific entries must stay ahead of
// the generic ones.
type kindRule struct {
	match func(mime string) bool
	kind  PreviewKind
}

var kindRules = []kindRule{
	{hasPrefix("image/"), KindImage},
	{equals("application/pdf"), KindPDF},
	{hasPrefix("video/"), KindVideo},
	{hasPrefix("audio/"), KindAudio},
	{hasPrefix("text/"), KindText},
	{equals("application/json"), KindText},
	{equals("application/javascript"), KindText},
	{equals("application/xml"), KindText},
}

func hasPrefix(p string) func(string) bool {
	return func(m string) bool { return strings.HasPrefix(m, p) }
}

func equals(e string) func(string) bool {
	return func(m string) bool { return m == e }
}

// KindOf returns the preview kind for a MIME type, or KindNone when no
// previewer applies. Parameters like "; charset=utf-8" are ignored.
func KindOf(mime string) PreviewKind {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	for _, r := range kindRules {
		if r.match(mime) {
			return r.kind
		}
	}
	return KindNone
}

// codeExts marks extensions rendered with the code viewer rather than the
// prose viewer.
var codeExts = map[string]bool{
	".go": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".py": true, ".rb": true, ".rs": true, ".java": true, ".c": true,
	".h": true, ".cpp": true, ".cs": true, ".sh": true, ".sql": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".xml": true,
	".html": true, ".css": true,
}

// TextFlavor decides between the code and prose text viewers by extension.
func TextFlavor(filename string) string {
	if codeExts[strings.ToLower(filepath.Ext(filename))] {
		return "code"
	}
	return "prose"
}

// labelRule resolves the display label for a descriptor. Same contract as
// kindRules: ordered, first match wins, specific before generic.
type labelRule struct {
	match func(mime, ext string) bool
	label string
}

var labelRules = []labelRule{
	{func(m, e string) bool { return m == "application/json" || e == ".json" }, "JSON"},
	{func(m, e string) bool { return m == "text/csv" || e == ".csv" }, "Spreadsheet"},
	{func(m, e string) bool { return codeExts[e] }, "Code"},
	{func(m, e string) bool { return m == "application/pdf" }, "Document"},
	{func(m, e string) bool { return strings.HasPrefix(m, "image/") }, "Image"},
	{func(m, e string) bool { return strings.HasPrefix(m, "video/") }, "Video"},
	{func(m, e string) bool { return strings.HasPrefix(m, "audio/") }, "Audio"},
	{func(m, e string) bool { return strings.HasPrefix(m, "text/") }, "Text"},
	{func(m, e string) bool {
		return m == "application/zip" || m == "application/gzip" || e == ".zip" || e == ".tar" || e == ".gz"
	}, "Archive"},
}

// LabelFor returns the display label for a file, with "File" as the default
// fallback.
func LabelFor(mime, filename string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, r := range labelRules {
		if r.match(mime, ext) {
			return r.label
		}
	}
	return "File"
}
