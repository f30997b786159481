package web

import (
	"strconv"
	"strings"
)

// Result is a handler's normalized outcome: a status code, an
// optional phrase (looked up from the status table when empty), and
// a body as raw bytes, a string, or a byte stream (io.Reader-like,
// see BodyStream).
type Result struct {
	Status int
	Phrase string
	Body   any // []byte, string, or a BodyStream
}

// MethodFunc is a single per-method entry point, the Go analog of the
// source's do_<method> reflection-discovered methods. It receives the
// in-flight request/response pair and the route's capture groups
// (via req.Named/req.Positional). A domain error is raised by
// panicking with an *Error; the response pipeline recovers it and
// routes it through the error-route table exactly like a returned
// Result would be, mirroring the source's exception-based HTTPError.
type MethodFunc func(req *Request, resp *Response) Result

// Handler is the polymorphic per-route object: a fixed table of
// per-method entry points built once at registration (no runtime
// reflection), plus the reader/writer disposition and the
// decode/encode/check-continue hooks that mixins layer over.
type Handler interface {
	// Method returns the entry point registered for method (already
	// upper-cased), and whether one exists.
	Method(method string) (MethodFunc, bool)

	// AllowedMethods lists every method with a registered entry point,
	// used to build the Allow header on 405 and on OPTIONS. HEAD is
	// included automatically by the dispatcher when GET exists; it
	// need not appear here.
	AllowedMethods() []string

	// IsReaderMethod reports whether method should acquire the
	// resource coordinator as a reader (true) or writer (false).
	IsReaderMethod(method string) bool

	// Decode transforms a freshly read request body before it is
	// stored on the Request. Identity by default.
	Decode(body []byte) ([]byte, error)

	// Encode transforms a handler's successful Result before it is
	// written to the wire. Identity by default.
	Encode(result Result) (Result, error)

	// CheckContinue is consulted before a 100-Continue response is
	// sent for a request carrying Expect: 100-continue. Returning an
	// error aborts with that error instead of continuing.
	CheckContinue(req *Request) error
}

// BodyCarryingMethods are the methods whose body is read and decoded
// before dispatch, per spec.md §4.5.
var BodyCarryingMethods = map[string]bool{"POST": true, "PUT": true, "PATCH": true}

// MethodTable is a ready-made Handler built from a map of per-method
// functions, suitable for most routes; embed and override individual
// methods for custom decode/encode/reader behavior.
type MethodTable struct {
	Funcs map[string]MethodFunc

	// ReaderAll, when true, marks every method as a reader. Otherwise
	// ReaderMethods names the subset that are readers; everything
	// else is a writer. Default (both zero) is OPTIONS/HEAD/GET only.
	ReaderAll     bool
	ReaderMethods []string

	DecodeFunc        func([]byte) ([]byte, error)
	EncodeFunc        func(Result) (Result, error)
	CheckContinueFunc func(*Request) error
}

// NewMethodTable builds a MethodTable from funcs with the default
// reader disposition (OPTIONS, HEAD, GET are readers).
func NewMethodTable(funcs map[string]MethodFunc) *MethodTable {
	return &MethodTable{Funcs: funcs, ReaderMethods: []string{"OPTIONS", "HEAD", "GET"}}
}

func (t *MethodTable) Method(method string) (MethodFunc, bool) {
	f, ok := t.Funcs[strings.ToUpper(method)]
	return f, ok
}

func (t *MethodTable) AllowedMethods() []string {
	methods := make([]string, 0, len(t.Funcs))
	for m := range t.Funcs {
		methods = append(methods, m)
	}
	return methods
}

func (t *MethodTable) IsReaderMethod(method string) bool {
	method = strings.ToUpper(method)
	if t.ReaderAll {
		return true
	}
	readers := t.ReaderMethods
	if readers == nil {
		readers = []string{"OPTIONS", "HEAD", "GET"}
	}
	for _, m := range readers {
		if m == method {
			return true
		}
	}
	return false
}

func (t *MethodTable) Decode(body []byte) ([]byte, error) {
	if t.DecodeFunc != nil {
		return t.DecodeFunc(body)
	}
	return body, nil
}

func (t *MethodTable) Encode(r Result) (Result, error) {
	if t.EncodeFunc != nil {
		return t.EncodeFunc(r)
	}
	return r, nil
}

func (t *MethodTable) CheckContinue(req *Request) error {
	if t.CheckContinueFunc != nil {
		return t.CheckContinueFunc(req)
	}
	return nil
}

// DummyHandler carries a captured parse/routing error through the
// cycle so it can be surfaced uniformly by the response pipeline,
// which recognizes *DummyHandler directly and short-circuits straight
// to rendering Err (spec.md §4.3 step 8, §7 "deferred into a dummy
// handler"). Method is never actually invoked; it exists only to
// satisfy Handler.
type DummyHandler struct {
	Err error
}

func (d *DummyHandler) Method(method string) (MethodFunc, bool) {
	return nil, false
}
func (d *DummyHandler) AllowedMethods() []string        { return nil }
func (d *DummyHandler) IsReaderMethod(method string) bool { return true }
func (d *DummyHandler) Decode(b []byte) ([]byte, error)   { return b, nil }
func (d *DummyHandler) Encode(r Result) (Result, error)   { return r, nil }
func (d *DummyHandler) CheckContinue(*Request) error      { return nil }

// ErrorHandler renders the built-in plaintext "<code> - <phrase>\n"
// body for a given status code; it is the fallback when no
// error-route entry matches.
type ErrorHandler struct {
	Code   int
	Phrase string
}

func (e *ErrorHandler) Method(method string) (MethodFunc, bool) {
	return func(req *Request, resp *Response) Result {
		phrase := e.Phrase
		if phrase == "" {
			phrase = StatusPhrase(e.Code)
		}
		return Result{Status: e.Code, Phrase: phrase, Body: []byte(phraseBody(e.Code, phrase))}
	}, true
}
func (e *ErrorHandler) AllowedMethods() []string          { return nil }
func (e *ErrorHandler) IsReaderMethod(method string) bool { return true }
func (e *ErrorHandler) Decode(b []byte) ([]byte, error)   { return b, nil }
func (e *ErrorHandler) Encode(r Result) (Result, error)   { return r, nil }
func (e *ErrorHandler) CheckContinue(*Request) error      { return nil }

func phraseBody(code int, phrase string) string {
	return strconv.Itoa(code) + " - " + phrase + "\n"
}
