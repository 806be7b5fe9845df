package http11

// HTTP method tokens with a dedicated dispatch hook.
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodDelete  = "DELETE"
	MethodConnect = "CONNECT"
	MethodOptions = "OPTIONS"
	MethodTrace   = "TRACE"
	MethodPatch   = "PATCH"
)

// Method IDs for O(1) switching. MethodUnknown covers every token without
// a dedicated hook, including lower-case spellings of the known ones.
const (
	MethodUnknown uint8 = iota
	MethodIDGet
	MethodIDHead
	MethodIDPost
	MethodIDPut
	MethodIDDelete
	MethodIDConnect
	MethodIDOptions
	MethodIDTrace
	MethodIDPatch
)

// ParseMethodID maps a method token to its ID. Matching is exact and
// case-sensitive: "get" is MethodUnknown.
func ParseMethodID(method string) uint8 {
	switch len(method) {
	case 3:
		if method == MethodGet {
			return MethodIDGet
		}
		if method == MethodPut {
			return MethodIDPut
		}
	case 4:
		if method == MethodPost {
			return MethodIDPost
		}
		if method == MethodHead {
			return MethodIDHead
		}
	case 5:
		if method == MethodPatch {
			return MethodIDPatch
		}
		if method == MethodTrace {
			return MethodIDTrace
		}
	case 6:
		if method == MethodDelete {
			return MethodIDDelete
		}
	case 7:
		if method == MethodOptions {
			return MethodIDOptions
		}
		if method == MethodConnect {
			return MethodIDConnect
		}
	}
	return MethodUnknown
}

// MethodString returns the token for a method ID, or "" for MethodUnknown.
func MethodString(id uint8) string {
	switch id {
	case MethodIDGet:
		return MethodGet
	case MethodIDHead:
		return MethodHead
	case MethodIDPost:
		return MethodPost
	case MethodIDPut:
		return MethodPut
	case MethodIDDelete:
		return MethodDelete
	case MethodIDConnect:
		return MethodConnect
	case MethodIDOptions:
		return MethodOptions
	case MethodIDTrace:
		return MethodTrace
	case MethodIDPatch:
		return MethodPatch
	default:
		return ""
	}
}

// isTokenChar reports whether c may appear in a method token (RFC 7230 tchar).
func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
