package http11

import "strings"

// Header is an ordered set of header fields with case-insensitive names.
//
// Design:
// - Linear scan over a small slice; header sets are short
// - One field per name: Set replaces any field whose name matches
//   case-insensitively, keeping the new spelling
// - Names are stored as given; callers compare through Get/Has
//
// The zero value is an empty header ready to use.
type Header struct {
	fields []headerField
}

type headerField struct {
	name  string
	value string
}

// Get returns the value for name, or "" if absent.
func (h *Header) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

// Lookup returns the value for name and whether it is present.
func (h *Header) Lookup(name string) (string, bool) {
	if i := h.index(name); i >= 0 {
		return h.fields[i].value, true
	}
	return "", false
}

// Has reports whether a field named name exists.
func (h *Header) Has(name string) bool {
	return h.index(name) >= 0
}

// Set stores value under name, replacing an existing field with the same
// name in any letter case.
func (h *Header) Set(name, value string) {
	if i := h.index(name); i >= 0 {
		h.fields[i] = headerField{name: name, value: value}
		return
	}
	h.fields = append(h.fields, headerField{name: name, value: value})
}

// Del removes the field named name.
func (h *Header) Del(name string) {
	if i := h.index(name); i >= 0 {
		h.fields = append(h.fields[:i], h.fields[i+1:]...)
	}
}

// Len returns the number of fields.
func (h *Header) Len() int {
	return len(h.fields)
}

// VisitAll calls fn for each field in insertion order until fn returns false.
func (h *Header) VisitAll(fn func(name, value string) bool) {
	for _, f := range h.fields {
		if !fn(f.name, f.value) {
			return
		}
	}
}

// Clone returns an independent copy.
func (h *Header) Clone() Header {
	if len(h.fields) == 0 {
		return Header{}
	}
	fields := make([]headerField, len(h.fields))
	copy(fields, h.fields)
	return Header{fields: fields}
}

// Map returns the fields as a map keyed by stored name.
func (h *Header) Map() map[string]string {
	m := make(map[string]string, len(h.fields))
	for _, f := range h.fields {
		m[f.name] = f.value
	}
	return m
}

// Reset removes all fields, keeping capacity.
func (h *Header) Reset() {
	h.fields = h.fields[:0]
}

func (h *Header) index(name string) int {
	for i := range h.fields {
		if strings.EqualFold(h.fields[i].name, name) {
			return i
		}
	}
	return -1
}
