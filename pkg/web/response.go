package web

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"
)

// StreamChunkSize bounds a single read from a streamed body, used both
// for length-delimited and chunked framing.
const StreamChunkSize = 8 * 1024

// BodyStream marks a Result.Body as a byte stream rather than a
// fully-materialized []byte/string. Length is the declared
// Content-Length to use for a length-delimited stream, or -1 to force
// chunked framing.
type BodyStream struct {
	io.Reader
	Length int64
}

// Response is the per-cycle response-side state: the outbound header
// set, whether the body should be written to the wire (false for
// HEAD), and the bufio.Writer the final bytes land on.
type Response struct {
	bw        *bufio.Writer
	Header    *Header
	WriteBody bool
	Status    int
}

func newResponse(bw *bufio.Writer) *Response {
	return &Response{bw: bw, Header: NewHeader(), WriteBody: true}
}

// Deps bundles the collaborators a cycle needs beyond the request
// itself: the route tables, the resource coordinator, server identity
// strings, and the injectable loggers (spec.md §6 "injectable
// loggers").
type Deps struct {
	Routes         *RouteTable
	ErrorRoutes    *RouteTable
	Lock           *ResourceLock
	ServerName     string
	MaxRequestSize int
	Access         AccessLogger
	Diag           Logger
	Metrics        MetricsRecorder
}

// AccessLogger emits one structured record per completed cycle. level
// is "INFO", "WARNING", or "ERROR" per spec.md §4.4 step 10.
type AccessLogger interface {
	LogAccess(host, request string, code, size int, level string)
}

// Logger is the diagnostic logger consulted for unexpected failures.
type Logger interface {
	Errorf(format string, args ...any)
}

// Outcome reports whether a cycle fully completed or must be retried
// after a resource-lock wait.
type Outcome int

const (
	Handled Outcome = iota
	NotYetHandled
)

// Serve runs the full response-writer pipeline (spec.md §4.4) for a
// parsed (or parse-failed, via a DummyHandler) request. owner
// identifies the caller for resource-lock re-entrance.
func Serve(req *Request, resp *Response, deps Deps, owner ownerID, initialParseErr error) Outcome {
	handler := req.Handler
	if handler == nil {
		handler = &DummyHandler{Err: initialParseErr}
	}

	method := req.Method
	effectiveMethod := method
	if method == "HEAD" {
		effectiveMethod = "GET"
		resp.WriteBody = false
	}

	isReader := handler.IsReaderMethod(effectiveMethod)
	if method == "OPTIONS" {
		isReader = true
	}

	if !deps.Lock.Acquire(owner, req.Resource, !isReader) {
		writeContinueProbe(req, resp)
		req.Skip = true
		return NotYetHandled
	}

	result, respondErr := dispatch(handler, method, effectiveMethod, req, resp, deps)
	deps.Lock.Release(req.Resource, !isReader, true)

	if respondErr != nil {
		result = renderError(respondErr, req, resp, deps)
	}

	if result.Phrase == "" {
		result.Phrase = StatusPhrase(result.Status)
	}

	finalize(req, resp, result, deps)
	return Handled
}

// dispatch runs the per-method contract of spec.md §4.5: 405/Allow,
// body read + decode + 100-continue, invoking the chosen entry point,
// and encode. Failures surface as *Error (HTTP-level) or any other
// error (unexpected, rendered as 500 by the caller).
func dispatch(handler Handler, method, effectiveMethod string, req *Request, resp *Response, deps Deps) (result Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			if herr, ok := p.(*Error); ok {
				err = herr
				return
			}
			if e, ok := p.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("web: handler panic: %v", p)
		}
	}()

	if dh, ok := handler.(*DummyHandler); ok {
		return Result{}, dh.Err
	}

	if method == "OPTIONS" {
		allow := allowHeader(handler)
		resp.Header.Set("Allow", allow, true)
		return Result{Status: 204}, nil
	}

	fn, ok := handler.Method(effectiveMethod)
	if !ok {
		resp.Header.Set("Allow", allowHeader(handler), true)
		return Result{}, &Error{Code: 405}
	}

	if BodyCarryingMethods[effectiveMethod] {
		if err := readAndDecodeBody(handler, req, resp, deps); err != nil {
			return Result{}, err
		}
	}

	result = fn(req, resp)
	encoded, eerr := handler.Encode(result)
	if eerr != nil {
		return Result{}, eerr
	}
	return encoded, nil
}

func allowHeader(handler Handler) string {
	methods := handler.AllowedMethods()
	hasGet := false
	set := make(map[string]bool, len(methods)+2)
	for _, m := range methods {
		set[m] = true
		if m == "GET" {
			hasGet = true
		}
	}
	set["OPTIONS"] = true
	if hasGet {
		set["HEAD"] = true
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return strings.Join(out, ", ")
}

// readAndDecodeBody implements spec.md §4.5's body-reading rules:
// Content-Length validation, the 100-continue handshake, size
// enforcement against MaxRequestSize, and the decode hook.
func readAndDecodeBody(handler Handler, req *Request, resp *Response, deps Deps) error {
	length, ok := req.ContentLength()
	if !ok {
		return &Error{Code: 400}
	}
	if length > deps.MaxRequestSize {
		return &Error{Code: 413}
	}

	if strings.EqualFold(req.Header.Get("Expect", ""), "100-continue") {
		if err := handler.CheckContinue(req); err != nil {
			return err
		}
		resp.bw.WriteString("HTTP/1.1 100 Continue\r\n\r\n")
		resp.bw.Flush()
	}

	buf := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(req.br, buf); err != nil {
			return &Error{Code: 400, Err: err}
		}
	}

	decoded, err := handler.Decode(buf)
	if err != nil {
		return err
	}
	req.Body = decoded
	return nil
}

// renderError selects the first matching error-route handler (or the
// built-in plaintext renderer) for err and runs it, per spec.md §4.4
// step 3 / §7.
func renderError(err error, req *Request, resp *Response, deps Deps) Result {
	herr, isHTTP := err.(*Error)
	if !isHTTP {
		if deps.Diag != nil {
			deps.Diag.Errorf("unexpected handler failure for %s %s: %v", req.Method, req.RawLine, err)
		}
		herr = &Error{Code: 500, Err: err}
	}

	code := herr.Code
	factory, named, positional, ok := deps.ErrorRoutes.Match(strconv.Itoa(code))
	var eh Handler
	if ok {
		eh = factory(named, positional)
	} else {
		eh = &ErrorHandler{Code: code, Phrase: herr.Phrase}
	}

	result, rerr := func() (result Result, rerr error) {
		defer func() {
			if p := recover(); p != nil {
				rerr = fmt.Errorf("web: error handler panic: %v", p)
			}
		}()
		fn, _ := eh.Method("GET")
		if fn == nil {
			return Result{Status: code, Phrase: herr.Phrase, Body: []byte(phraseBody(code, herr.Phrase))}, nil
		}
		return fn(req, resp), nil
	}()

	if rerr != nil {
		// Nested failure inside an error handler: hard-coded 500.
		return Result{Status: 500, Phrase: "Internal Server Error", Body: []byte("500 - Internal Server Error\n")}
	}

	if herr.Header != nil {
		mergeHeaders(resp, herr.Header)
	}
	if result.Status == 0 {
		result.Status = code
	}
	if result.Phrase == "" {
		result.Phrase = herr.Phrase
	}
	if !ok && herr.Body != nil {
		// No error route matched: the error's own body replaces the
		// built-in plaintext page.
		result.Body = herr.Body
	}
	return result
}

func mergeHeaders(resp *Response, h *Header) {
	h.VisitAll(func(name, value string) {
		resp.Header.Set(name, value, false)
	})
}

// finalize performs spec.md §4.4 steps 5-11: normalizing the result,
// the framing decision, the keep-alive/Connection/Date/Server
// headers, writing status line + headers + body, and the access-log
// emission.
func finalize(req *Request, resp *Response, result Result, deps Deps) {
	resp.Status = result.Status
	phrase := result.Phrase
	if phrase == "" {
		phrase = StatusPhrase(result.Status)
	}

	var bodyBytes []byte
	var stream *BodyStream
	switch b := result.Body.(type) {
	case nil:
		bodyBytes = nil
	case []byte:
		bodyBytes = b
	case string:
		bodyBytes = []byte(b)
	case BodyStream:
		stream = &b
	case *BodyStream:
		stream = b
	}

	if stream != nil {
		if stream.Length >= 0 && resp.Header.Get("Content-Length", "") == "" {
			resp.Header.Set("Content-Length", strconv.FormatInt(stream.Length, 10), true)
		} else if resp.Header.Get("Content-Length", "") == "" {
			resp.Header.Set("Transfer-Encoding", "chunked", true)
		}
	} else {
		resp.Header.Set("Content-Length", strconv.Itoa(len(bodyBytes)), true)
	}

	if result.Status >= 400 {
		req.Keepalive = false
	}
	if !req.Keepalive {
		resp.Header.Set("Connection", "close", true)
	}
	resp.Header.Set("Server", deps.ServerName, true)
	resp.Header.Set("Date", httpDate(time.Now()), true)

	written := writeResponse(req, resp, phrase, bodyBytes, stream)

	level := "INFO"
	if result.Status >= 500 {
		level = "ERROR"
	} else if result.Status >= 400 {
		level = "WARNING"
	}
	if deps.Access != nil {
		deps.Access.LogAccess(req.Peer, req.RawLine, result.Status, written, level)
	}
	if deps.Metrics != nil {
		deps.Metrics.IncRequestsByStatus(result.Status)
	}
}

// writeResponse performs spec.md §4.4 step 8: status line, headers,
// then the body under its chosen framing. I/O errors are swallowed
// (the peer is assumed gone); it returns the number of body bytes
// written.
func writeResponse(req *Request, resp *Response, phrase string, body []byte, stream *BodyStream) int {
	bw := resp.bw
	proto := req.Proto
	if proto == "" {
		// The request line failed to parse; answer as HTTP/1.1.
		proto = "HTTP/1.1"
	}
	fmt.Fprintf(bw, "%s %d %s\r\n", proto, resp.Status, phrase)

	var sb strings.Builder
	resp.Header.WriteTo(&sb)
	bw.WriteString(sb.String())

	written := 0
	if !resp.WriteBody {
		bw.Flush()
		if stream != nil {
			if rc, ok := stream.Reader.(io.Closer); ok {
				rc.Close()
			}
		}
		return 0
	}

	switch {
	case stream == nil:
		n, _ := bw.Write(body)
		written = n
	case resp.Header.Has("Content-Length"):
		written = writeLengthDelimitedStream(bw, stream)
	default:
		written = writeChunkedStream(bw, stream)
	}
	bw.Flush()

	if stream != nil {
		if rc, ok := stream.Reader.(io.Closer); ok {
			rc.Close()
		}
	}
	return written
}

func writeLengthDelimitedStream(bw *bufio.Writer, stream *BodyStream) int {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if cap(buf.B) < StreamChunkSize {
		buf.B = make([]byte, StreamChunkSize)
	}
	buf.B = buf.B[:StreamChunkSize]

	remaining := stream.Length
	written := 0
	for remaining > 0 {
		chunkSize := int64(StreamChunkSize)
		if remaining < chunkSize {
			chunkSize = remaining
		}
		n, err := stream.Reader.Read(buf.B[:chunkSize])
		if n > 0 {
			bw.Write(buf.B[:n])
			written += n
			remaining -= int64(n)
		}
		if err != nil {
			break
		}
	}
	return written
}

func writeChunkedStream(bw *bufio.Writer, stream *BodyStream) int {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if cap(buf.B) < StreamChunkSize {
		buf.B = make([]byte, StreamChunkSize)
	}
	buf.B = buf.B[:StreamChunkSize]

	written := 0
	for {
		n, err := stream.Reader.Read(buf.B[:StreamChunkSize])
		if n > 0 {
			fmt.Fprintf(bw, "%x\r\n", n)
			bw.Write(buf.B[:n])
			bw.WriteString("\r\n")
			written += n
		}
		if err != nil {
			break
		}
	}
	bw.WriteString("0\r\n\r\n")
	return written
}

// writeContinueProbe sends the 100-Continue liveness probe used when
// a resource acquisition fails (spec.md §4.2). If the write itself
// fails the peer connection is considered dead; the cycle is closed
// rather than requeued.
func writeContinueProbe(req *Request, resp *Response) {
	if req.Conn != nil {
		req.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	}
	if _, err := resp.bw.WriteString("HTTP/1.1 100 Continue\r\n\r\n"); err != nil {
		req.Close = true
		return
	}
	if err := resp.bw.Flush(); err != nil {
		req.Close = true
	}
}
