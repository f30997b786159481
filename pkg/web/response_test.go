package web

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

type stubAccess struct {
	called bool
	code   int
	size   int
	level  string
}

func (s *stubAccess) LogAccess(host, request string, code, size int, level string) {
	s.called = true
	s.code = code
	s.size = size
	s.level = level
}

func newTestDeps(routes *RouteTable) (Deps, *stubAccess) {
	access := &stubAccess{}
	return Deps{
		Routes:         routes,
		ErrorRoutes:    NewRouteTable(),
		Lock:           NewResourceLock(),
		ServerName:     "fooweb-test",
		MaxRequestSize: 1 << 20,
		Access:         access,
	}, access
}

func runCycle(t *testing.T, routes *RouteTable, rawRequest string) (client net.Conn, access *stubAccess, status int) {
	t.Helper()
	server, client := testConnPair(t)
	deps, access := newTestDeps(routes)

	writeAsync(t, client, rawRequest)

	req := newRequest(1, server, 4096)
	_, perr := req.parse(routes, 4096, 64, time.Second)

	bw := bufio.NewWriter(server)
	resp := newResponse(bw)
	owner := ownerID{workerID: 1, requestID: 1}

	Serve(req, resp, deps, owner, perr)
	server.Close() // force EOF on the client side so readResponse's trailing read terminates
	return client, access, resp.Status
}

func readResponse(t *testing.T, client net.Conn) (statusLine string, headers map[string]string, body string) {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(client)

	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("read status line: %v", err)
	}
	statusLine = strings.TrimRight(line, "\r\n")

	headers = make(map[string]string)
	for {
		hline, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read header line: %v", err)
		}
		hline = strings.TrimRight(hline, "\r\n")
		if hline == "" {
			break
		}
		idx := strings.IndexByte(hline, ':')
		if idx < 0 {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(hline[:idx]))] = strings.TrimSpace(hline[idx+1:])
	}

	rest, _ := io.ReadAll(br)
	body = string(rest)
	return
}

func TestServePlainGet(t *testing.T) {
	routes := NewRouteTable()
	routes.Add("/", okHandlerFactory)

	client, access, status := runCycle(t, routes, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}

	statusLine, headers, body := readResponse(t, client)
	if !strings.Contains(statusLine, "200") {
		t.Fatalf("status line = %q", statusLine)
	}
	if body != "hello" {
		t.Fatalf("body = %q, want hello", body)
	}
	if headers["content-length"] != "5" {
		t.Fatalf("content-length = %q, want 5", headers["content-length"])
	}
	if !access.called || access.code != 200 {
		t.Fatalf("access log not recorded correctly: %+v", access)
	}
}

func TestServeHeadMirrorsGetWithoutBody(t *testing.T) {
	routes := NewRouteTable()
	routes.Add("/", okHandlerFactory)

	client, _, status := runCycle(t, routes, "HEAD / HTTP/1.1\r\nHost: x\r\n\r\n")
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}

	_, headers, body := readResponse(t, client)
	if body != "" {
		t.Fatalf("HEAD body = %q, want empty", body)
	}
	if headers["content-length"] != "5" {
		t.Fatalf("HEAD content-length = %q, want 5 (mirrors GET)", headers["content-length"])
	}
}

func TestServeChunkedStreaming(t *testing.T) {
	routes := NewRouteTable()
	routes.Add("/stream", func(map[string]string, []string) Handler {
		return NewMethodTable(map[string]MethodFunc{
			"GET": func(req *Request, resp *Response) Result {
				return Result{Status: 200, Body: &BodyStream{Reader: strings.NewReader("streamed-body"), Length: -1}}
			},
		})
	})

	client, _, status := runCycle(t, routes, "GET /stream HTTP/1.1\r\nHost: x\r\n\r\n")
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}

	_, headers, body := readResponse(t, client)
	if headers["transfer-encoding"] != "chunked" {
		t.Fatalf("transfer-encoding = %q, want chunked", headers["transfer-encoding"])
	}
	if !strings.Contains(body, "streamed-body") {
		t.Fatalf("chunked body = %q, want it to contain streamed-body", body)
	}
	if !strings.HasSuffix(body, "0\r\n\r\n") {
		t.Fatalf("chunked body missing terminator: %q", body)
	}
}

func TestServeOversizeRequestLineReturns414(t *testing.T) {
	server, client := testConnPair(t)
	routes := NewRouteTable()
	deps, _ := newTestDeps(routes)

	writeAsync(t, client, "GET /"+strings.Repeat("a", 100)+" HTTP/1.1\r\nHost: x\r\n\r\n")

	req := newRequest(1, server, 4096)
	_, perr := req.parse(routes, 16, 64, time.Second)

	bw := bufio.NewWriter(server)
	resp := newResponse(bw)
	Serve(req, resp, deps, ownerID{workerID: 1, requestID: 1}, perr)
	server.Close()

	statusLine, _, _ := readResponse(t, client)
	if !strings.Contains(statusLine, "414") {
		t.Fatalf("status line = %q, want 414", statusLine)
	}
}

func TestServeWriterLockContentionSends100ContinueProbe(t *testing.T) {
	routes := NewRouteTable()
	routes.Add("/locked", func(map[string]string, []string) Handler {
		return NewMethodTable(map[string]MethodFunc{
			"POST": func(req *Request, resp *Response) Result {
				return Result{Status: 200, Body: "written"}
			},
		})
	})

	server, client := testConnPair(t)
	deps, _ := newTestDeps(routes)

	// Pre-hold the resource as a writer under a different owner so the
	// cycle's own writer acquisition fails.
	busyOwner := ownerID{workerID: 99, requestID: 99}
	if !deps.Lock.Acquire(busyOwner, "/locked", true) {
		t.Fatal("setup: expected to acquire /locked as the contending writer")
	}

	writeAsync(t, client, "POST /locked HTTP/1.1\r\nHost: x\r\nContent-Length: 0\r\n\r\n")

	req := newRequest(1, server, 4096)
	_, perr := req.parse(routes, 4096, 64, time.Second)

	bw := bufio.NewWriter(server)
	resp := newResponse(bw)
	outcome := Serve(req, resp, deps, ownerID{workerID: 1, requestID: 1}, perr)

	if outcome != NotYetHandled {
		t.Fatalf("outcome = %v, want NotYetHandled", outcome)
	}
	if !req.Skip {
		t.Fatal("expected Skip=true after a failed lock acquisition")
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(client)
	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("read continue probe: %v", err)
	}
	if !strings.Contains(line, "100 Continue") {
		t.Fatalf("probe line = %q, want 100 Continue", line)
	}
}
