package http11

import "strings"

// DefaultMimeType is returned for unknown or missing extensions.
const DefaultMimeType = "application/octet-stream"

// mimeTypes maps lower-case file extensions to Content-Type values.
// Built once at init; read-only afterwards.
var mimeTypes = map[string]string{
	// Text & documents
	"css":    "text/css",
	"csv":    "text/csv",
	"htm":    "text/html",
	"html":   "text/html",
	"ics":    "text/calendar",
	"js":     "text/javascript",
	"mjs":    "text/javascript",
	"txt":    "text/plain",
	"json":   "application/json",
	"jsonld": "application/ld+json",
	"xhtml":  "application/xhtml+xml",
	"xml":    "application/xml",
	"xul":    "application/vnd.mozilla.xul+xml",
	"pdf":    "application/pdf",
	"rtf":    "application/rtf",
	"php":    "application/x-httpd-php",
	"sh":     "application/x-sh",
	"csh":    "application/x-csh",

	// Office & e-books
	"abw":  "application/x-abiword",
	"azw":  "application/vnd.amazon.ebook",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"epub": "application/epub+zip",
	"odp":  "application/vnd.oasis.opendocument.presentation",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"odt":  "application/vnd.oasis.opendocument.text",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"vsd":  "application/vnd.visio",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"mpkg": "application/vnd.apple.installer+xml",

	// Images
	"avif": "image/avif",
	"bmp":  "image/bmp",
	"gif":  "image/gif",
	"ico":  "image/vnd.microsoft.icon",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"webp": "image/webp",

	// Audio
	"aac":  "audio/aac",
	"mid":  "audio/midi",
	"midi": "audio/midi",
	"mp3":  "audio/mpeg",
	"oga":  "audio/ogg",
	"opus": "audio/opus",
	"wav":  "audio/wav",
	"weba": "audio/webm",
	"cda":  "application/x-cdf",

	// Video
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"mp4":  "video/mp4",
	"mpeg": "video/mpeg",
	"ogv":  "video/ogg",
	"ts":   "video/mp2t",
	"webm": "video/webm",
	"3gp":  "video/3gpp",
	"3g2":  "video/3gpp2",
	"ogx":  "application/ogg",

	// Fonts
	"eot":   "application/vnd.ms-fontobject",
	"otf":   "font/otf",
	"ttf":   "font/ttf",
	"woff":  "font/woff",
	"woff2": "font/woff2",

	// Archives
	"arc": "application/x-freearc",
	"bz":  "application/x-bzip",
	"bz2": "application/x-bzip2",
	"gz":  "application/gzip",
	"jar": "application/java-archive",
	"rar": "application/vnd.rar",
	"tar": "application/x-tar",
	"zip": "application/zip",
	"7z":  "application/x-7z-compressed",
}

// Extension returns the lower-cased substring after the last '.' in name,
// or "" when name has no '.'.
func Extension(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot == -1 {
		return ""
	}
	return strings.ToLower(name[dot+1:])
}

// MimeType returns the Content-Type for name based on its extension.
// Unknown and missing extensions map to DefaultMimeType.
func MimeType(name string) string {
	if t, ok := mimeTypes[Extension(name)]; ok {
		return t
	}
	return DefaultMimeType
}
