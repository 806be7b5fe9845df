package http11

import "strconv"

// UnknownStatusText is the reason phrase for codes outside the table.
const UnknownStatusText = "Unknown code"

var statusTexts = map[int]string{
	// 1xx Informational
	100: "Continue",
	101: "Switching Protocol",
	102: "Processing",
	103: "Early Hints",

	// 2xx Success
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	207: "Multi-Status",
	208: "Already Reported",
	226: "IM Used",

	// 3xx Redirection
	300: "Multiple Choice",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	306: "unused",
	307: "Temporary Redirect",
	308: "Permanent Redirect",

	// 4xx Client Error
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Payload Too Large",
	414: "URI Too Long",
	415: "Unsupported Media Type",
	416: "Range Not Satisfiable",
	417: "Expectation Failed",
	418: "I'm a teapot",
	421: "Misdirected Request",
	422: "Unprocessable Entity",
	423: "Locked",
	424: "Failed Dependency",
	425: "Too Early",
	426: "Upgrade Required",
	428: "Precondition Required",
	429: "Too Many Requests",
	431: "Request Header Fields Too Large",
	451: "Unavailable For Legal Reasons",

	// 5xx Server Error
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
	506: "Variant Also Negotiates",
	507: "Insufficient Storage",
	508: "Loop Detected",
	510: "Not Extended",
	511: "Network Authentication Required",
}

// statusLines caches "HTTP/1.1 CODE TEXT\r\n" for every code in the table.
var statusLines = func() map[int][]byte {
	m := make(map[int][]byte, len(statusTexts))
	for code, text := range statusTexts {
		m[code] = []byte(responseProto + " " + strconv.Itoa(code) + " " + text + "\r\n")
	}
	return m
}()

// StatusText returns the reason phrase for code, or "Unknown code".
func StatusText(code int) string {
	if text, ok := statusTexts[code]; ok {
		return text
	}
	return UnknownStatusText
}

// appendStatusLine appends the status line for code to dst.
// Codes in the table use the pre-built line.
func appendStatusLine(dst []byte, code int) []byte {
	if line, ok := statusLines[code]; ok {
		return append(dst, line...)
	}
	dst = append(dst, responseProto...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(code), 10)
	dst = append(dst, ' ')
	dst = append(dst, UnknownStatusText...)
	return append(dst, crlfBytes...)
}
