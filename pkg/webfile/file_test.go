package webfile

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/yourusername/fooweb/pkg/web"
)

func TestNormpathCollapsesDotSegments(t *testing.T) {
	cases := map[string]string{
		"/a/./b":      "/a/b",
		"/a/../b":     "/b",
		"/a/b/../../c": "/c",
		"/../a":       "/a",
		"/a/b/":       "/a/b/",
		"/":           "/",
		"a/b":         "a/b",
	}
	for in, want := range cases {
		if got := Normpath(in); got != want {
			t.Errorf("Normpath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormpathIsIdempotent(t *testing.T) {
	inputs := []string{"/a/./b/../c", "/../../x", "/a//b", "plain"}
	for _, in := range inputs {
		once := Normpath(in)
		twice := Normpath(once)
		if once != twice {
			t.Errorf("Normpath not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormpathNeverEscapesRoot(t *testing.T) {
	got := Normpath("/../../../etc/passwd")
	if got != "/etc/passwd" {
		t.Fatalf("Normpath(%q) = %q, want containment at root", "/../../../etc/passwd", got)
	}
}

func TestParseRangeSuffix(t *testing.T) {
	start, end, ok := parseRange("bytes=-10", 100)
	if !ok || start != 90 || end != 99 {
		t.Fatalf("parseRange suffix = %d,%d,%v, want 90,99,true", start, end, ok)
	}
}

func TestParseRangeStartToEnd(t *testing.T) {
	start, end, ok := parseRange("bytes=10-20", 100)
	if !ok || start != 10 || end != 20 {
		t.Fatalf("parseRange = %d,%d,%v, want 10,20,true", start, end, ok)
	}
}

func TestParseRangeOpenEnded(t *testing.T) {
	start, end, ok := parseRange("bytes=50-", 100)
	if !ok || start != 50 || end != 99 {
		t.Fatalf("parseRange open-ended = %d,%d,%v, want 50,99,true", start, end, ok)
	}
}

func TestParseRangeRejectsStartBeyondSize(t *testing.T) {
	if _, _, ok := parseRange("bytes=200-300", 100); ok {
		t.Fatal("expected a range starting past the resource size to be rejected")
	}
}

func TestParseRangeRejectsMalformedHeader(t *testing.T) {
	if _, _, ok := parseRange("not-a-range", 100); ok {
		t.Fatal("expected a malformed Range header to be rejected")
	}
}

func TestHandlerGetServesFileWithContentLength(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	h := &Handler{Root: dir}
	req := &web.Request{Header: web.NewHeader(), Named: map[string]string{"path": "hello.txt"}}
	resp := &web.Response{Header: web.NewHeader()}

	result := h.Get(req, resp)
	if result.Status != 200 {
		t.Fatalf("Status = %d, want 200", result.Status)
	}
	stream, ok := result.Body.(web.BodyStream)
	if !ok {
		t.Fatalf("Body type = %T, want web.BodyStream", result.Body)
	}
	if stream.Length != int64(len("hello world")) {
		t.Fatalf("stream length = %d, want %d", stream.Length, len("hello world"))
	}
	data, _ := io.ReadAll(stream.Reader)
	if string(data) != "hello world" {
		t.Fatalf("body = %q", data)
	}
	if resp.Header.Get("Content-Type", "") == "" {
		t.Fatal("expected a non-empty Content-Type for a known extension")
	}
}

func TestHandlerGetMissingFileReturns404(t *testing.T) {
	dir := t.TempDir()
	h := &Handler{Root: dir}
	req := &web.Request{Header: web.NewHeader(), Named: map[string]string{"path": "nope.txt"}}
	resp := &web.Response{Header: web.NewHeader()}

	defer func() {
		p := recover()
		herr, ok := p.(*web.Error)
		if !ok || herr.Code != 404 {
			t.Fatalf("panic = %v, want *web.Error 404", p)
		}
	}()
	h.Get(req, resp)
}

func TestHandlerGetRangeRequest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.bin"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	h := &Handler{Root: dir}
	req := &web.Request{Header: web.NewHeader(), Named: map[string]string{"path": "data.bin"}}
	req.Header.Set("Range", "bytes=2-5", true)
	resp := &web.Response{Header: web.NewHeader()}

	result := h.Get(req, resp)
	if result.Status != 206 {
		t.Fatalf("Status = %d, want 206", result.Status)
	}
	if resp.Header.Get("Content-Range", "") != "bytes 2-5/10" {
		t.Fatalf("Content-Range = %q", resp.Header.Get("Content-Range", ""))
	}
	stream := result.Body.(web.BodyStream)
	data, _ := io.ReadAll(stream.Reader)
	if string(data) != "2345" {
		t.Fatalf("range body = %q, want 2345", data)
	}
}

func TestHandlerGetUnsatisfiableRangeReturns416(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "data.bin"), []byte("0123456789"), 0o644)

	h := &Handler{Root: dir}
	req := &web.Request{Header: web.NewHeader(), Named: map[string]string{"path": "data.bin"}}
	req.Header.Set("Range", "bytes=9999-10000", true)
	resp := &web.Response{Header: web.NewHeader()}

	defer func() {
		p := recover()
		herr, ok := p.(*web.Error)
		if !ok || herr.Code != 416 {
			t.Fatalf("panic = %v, want *web.Error 416", p)
		}
	}()
	h.Get(req, resp)
}

func TestHandlerGetRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	h := &Handler{Root: dir}
	req := &web.Request{Header: web.NewHeader(), Named: map[string]string{"path": "../../../../etc/passwd"}}
	resp := &web.Response{Header: web.NewHeader()}

	defer func() {
		p := recover()
		if p == nil {
			t.Fatal("expected a panic for a path-traversal attempt")
		}
	}()
	h.Get(req, resp)
}
