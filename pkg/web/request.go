package web

import (
	"bufio"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Request carries the state of a single request/response cycle. It
// is reset at the top of each keep-alive cycle and preserved verbatim
// across a lock-wait requeue when Skip is true.
type Request struct {
	ID   uint64
	Conn net.Conn
	Peer string

	// Buffered reader owned by the connection (not recreated per
	// cycle) so leftover pipelined bytes survive into the next
	// request, per Design Notes "Pipelining".
	br *bufio.Reader

	RawLine  string // request line, verbatim, for the access log
	Method   string
	Target   string // raw, still-escaped request-target from the wire
	Resource string // unescaped resource string, the coordinator key
	Proto    string

	Header *Header
	Body   []byte

	Named      map[string]string
	Positional []string

	Handler  Handler
	Keepalive bool
	Skip      bool // preserves parsed state across a lock-wait requeue

	// Close is set once the cycle determines the connection must not
	// be reused (protocol error, Connection: close, etc).
	Close bool
}

// newRequest allocates a Request bound to conn, with its own buffered
// reader so pipelined bytes are not lost across cycles.
func newRequest(id uint64, conn net.Conn, bufSize int) *Request {
	peer := ""
	if conn != nil {
		peer = conn.RemoteAddr().String()
	}
	return &Request{
		ID:   id,
		Conn: conn,
		Peer: peer,
		br:   bufio.NewReaderSize(conn, bufSize),
	}
}

// resetForCycle clears per-cycle fields ahead of parsing the next
// request on this connection; the buffered reader is preserved.
func (r *Request) resetForCycle() {
	r.RawLine = ""
	r.Method = ""
	r.Target = ""
	r.Resource = ""
	r.Proto = ""
	r.Header = NewHeader()
	r.Body = nil
	r.Named = nil
	r.Positional = nil
	r.Handler = nil
	r.Skip = false
	r.Close = false
}

// parseOutcome distinguishes a cycle that ends without a response (the
// peer closed, or a read failed or timed out, before a full request
// line and header block arrived) from every other outcome.
type parseOutcome int

const (
	parseOK parseOutcome = iota
	parseConnClosed
)

// parse performs steps 1-7 of the request-parser contract (spec.md
// §4.3) against r's buffered reader. routes supplies handler lookup;
// maxLineSize/maxHeaders bound the request line and header block.
func (r *Request) parse(routes *RouteTable, maxLineSize, maxHeaders int, initialTimeout time.Duration) (parseOutcome, error) {
	if r.Skip {
		return parseOK, nil
	}

	r.resetForCycle()

	if initialTimeout > 0 && r.Conn != nil {
		r.Conn.SetReadDeadline(time.Now().Add(initialTimeout))
	}

	line, closed, err := readLine(r.br, maxLineSize+1)
	if closed {
		return parseConnClosed, nil
	}
	if err != nil {
		return parseConnClosed, nil // timeout/IO error: terminate silently
	}

	// Skip a bare CRLF preamble (spec.md §4.3 step 3).
	for line == "" {
		line, closed, err = readLine(r.br, maxLineSize+1)
		if closed {
			return parseConnClosed, nil
		}
		if err != nil {
			return parseConnClosed, nil
		}
	}

	if len(line) > maxLineSize {
		return parseOK, &Error{Code: 414}
	}

	r.RawLine = line
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return parseOK, &Error{Code: 400}
	}
	method, target, proto := parts[0], parts[1], parts[2]
	if proto != "HTTP/1.0" && proto != "HTTP/1.1" {
		return parseOK, &Error{Code: 505}
	}

	r.Method = strings.ToUpper(method)
	r.Target = target
	r.Proto = proto
	r.Keepalive = proto == "HTTP/1.1"

	if unescaped, uerr := url.PathUnescape(stripQuery(target)); uerr == nil {
		r.Resource = unescaped
	} else {
		r.Resource = stripQuery(target)
	}

	r.Header = NewHeader()
	headerCount := 0
	for {
		hline, closed, herr := readLine(r.br, maxLineSize+1)
		if closed || herr != nil {
			return parseConnClosed, nil
		}
		if hline == "" {
			break
		}
		if len(hline) > maxLineSize {
			return parseOK, headerTooLargeError(firstHeaderField(hline))
		}
		headerCount++
		if headerCount > maxHeaders {
			return parseOK, &Error{Code: 431, Phrase: "Too Many Headers"}
		}
		if err := r.Header.Add(hline); err != nil {
			return parseOK, err
		}
	}

	if err := r.validateFraming(); err != nil {
		return parseOK, err
	}

	if strings.EqualFold(r.Header.Get("Connection", ""), "close") {
		r.Keepalive = false
	}

	factory, named, positional, ok := routes.Match(r.Resource)
	if !ok {
		return parseOK, &Error{Code: 404}
	}
	r.Named = named
	r.Positional = positional
	r.Handler = factory(named, positional)
	return parseOK, nil
}

// validateFraming rejects request-smuggling-prone header combinations:
// Content-Length together with Transfer-Encoding, duplicate
// Content-Length values, and more than one Host header. This
// supplements spec.md's literal parser contract with hardening the
// Non-goals do not exclude.
func (r *Request) validateFraming() error {
	cls := r.Header.GetList("Content-Length")
	te := r.Header.Get("Transfer-Encoding", "")
	if len(cls) > 0 && te != "" {
		return &Error{Code: 400, Err: errBadHeaderLine}
	}
	if len(cls) > 1 {
		for _, v := range cls[1:] {
			if v != cls[0] {
				return &Error{Code: 400, Err: errBadHeaderLine}
			}
		}
	}
	if len(r.Header.GetList("Host")) > 1 {
		return &Error{Code: 400, Err: errBadHeaderLine}
	}
	return nil
}

// ContentLength returns the parsed Content-Length header value, or
// (0, true) when absent, or (0, false) when present but invalid.
func (r *Request) ContentLength() (int, bool) {
	v := r.Header.Get("Content-Length", "")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func stripQuery(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}

func firstHeaderField(line string) string {
	if i := strings.IndexByte(line, ':'); i >= 0 {
		return strings.TrimSpace(line[:i])
	}
	return "Header"
}

// readLine reads one CRLF-terminated line (without the trailing
// CRLF), bounded by limit bytes. closed is true when the first read
// of a new line fails, whether because the connection was closed or
// because of any other read error such as a timeout.
func readLine(br *bufio.Reader, limit int) (line string, closed bool, err error) {
	var sb strings.Builder
	read := 0
	for {
		b, rerr := br.ReadByte()
		if rerr != nil {
			if read == 0 {
				return "", true, nil
			}
			return "", false, rerr
		}
		read++
		if read > limit {
			return sb.String(), false, nil
		}
		if b == '\n' {
			s := sb.String()
			s = strings.TrimSuffix(s, "\r")
			return s, false, nil
		}
		if b != '\r' {
			sb.WriteByte(b)
		} else {
			// Peek: a bare \r not followed by \n is kept verbatim.
			next, perr := br.Peek(1)
			if perr == nil && len(next) == 1 && next[0] == '\n' {
				continue
			}
			sb.WriteByte(b)
		}
	}
}
