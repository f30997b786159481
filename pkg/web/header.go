// Package web implements a standalone HTTP/1.1 server: connection accept,
// request parsing, regex-dispatched handlers, a per-resource reader/writer
// coordinator, and a streaming response writer.
package web

import (
	"strings"
)

// Header is an ordered, case-insensitive, multi-valued HTTP header
// container. Lookup is case-insensitive; iteration and serialization
// follow first-insertion order; the original case of each header name
// is preserved for output.
type Header struct {
	order   []string            // lowercased names, first-insertion order
	display map[string]string   // lowercased name -> original display case
	values  map[string][]string // lowercased name -> values, in insertion order
}

// NewHeader returns an empty header set.
func NewHeader() *Header {
	return &Header{
		display: make(map[string]string),
		values:  make(map[string][]string),
	}
}

func (h *Header) ensureMaps() {
	if h.display == nil {
		h.display = make(map[string]string)
	}
	if h.values == nil {
		h.values = make(map[string][]string)
	}
}

// Add parses a raw "Name: value" header line (without the trailing
// CRLF) and appends it. It splits at the first colon and trims
// surrounding whitespace from both the name and the value. A line with
// no colon is rejected.
func (h *Header) Add(rawLine string) error {
	idx := strings.IndexByte(rawLine, ':')
	if idx < 0 {
		return &Error{Code: 400, Err: errBadHeaderLine}
	}
	name := strings.TrimSpace(rawLine[:idx])
	value := strings.TrimSpace(rawLine[idx+1:])
	if name == "" {
		return &Error{Code: 400, Err: errBadHeaderLine}
	}
	h.set(name, value, false)
	return nil
}

// Set assigns value under name. When overwrite is true any existing
// values are replaced; otherwise value is appended, preserving
// multi-valued headers such as Set-Cookie.
func (h *Header) Set(name, value string, overwrite bool) {
	h.set(name, value, overwrite)
}

func (h *Header) set(name, value string, overwrite bool) {
	h.ensureMaps()
	key := strings.ToLower(name)
	if overwrite {
		if _, ok := h.values[key]; !ok {
			h.order = append(h.order, key)
		}
		h.values[key] = []string{value}
		h.display[key] = name
		return
	}
	if _, ok := h.values[key]; !ok {
		h.order = append(h.order, key)
		h.display[key] = name
	}
	h.values[key] = append(h.values[key], value)
}

// Get returns the last value associated with name, or def if absent.
func (h *Header) Get(name, def string) string {
	vs, ok := h.values[strings.ToLower(name)]
	if !ok || len(vs) == 0 {
		return def
	}
	return vs[len(vs)-1]
}

// GetList returns every value associated with name, in insertion order.
func (h *Header) GetList(name string) []string {
	return h.values[strings.ToLower(name)]
}

// Has reports whether name has at least one value.
func (h *Header) Has(name string) bool {
	_, ok := h.values[strings.ToLower(name)]
	return ok
}

// Del removes every value associated with name.
func (h *Header) Del(name string) {
	key := strings.ToLower(name)
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	delete(h.display, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of distinct header names.
func (h *Header) Len() int {
	return len(h.order)
}

// VisitAll calls fn once per (displayName, value) pair in first-insertion
// order, once per value for multi-valued headers.
func (h *Header) VisitAll(fn func(name, value string)) {
	for _, key := range h.order {
		name := h.display[key]
		for _, v := range h.values[key] {
			fn(name, v)
		}
	}
}

// WriteTo serializes every header as "Name: value\r\n" lines, in
// first-insertion order, followed by the blank terminator line.
func (h *Header) WriteTo(sb *strings.Builder) {
	h.VisitAll(func(name, value string) {
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteString("\r\n")
	})
	sb.WriteString("\r\n")
}

// Clone returns an independent copy of h.
func (h *Header) Clone() *Header {
	c := NewHeader()
	c.order = append([]string(nil), h.order...)
	for k, v := range h.display {
		c.display[k] = v
	}
	for k, v := range h.values {
		c.values[k] = append([]string(nil), v...)
	}
	return c
}

// Clear removes every header.
func (h *Header) Clear() {
	h.order = nil
	h.display = make(map[string]string)
	h.values = make(map[string][]string)
}
