// Package webfile serves static files: path normalization, MIME
// guessing, and byte-range retrieval, grounded on
// original_source/fooster/web/file.py. spec.md §6 notes Range is
// "honored only by file-serving handlers; the core does not inspect
// it" — this is that handler.
package webfile

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/fooweb/pkg/web"
)

// Normpath normalizes p: it is idempotent, preserves leading and
// trailing slashes, and collapses "." and ".." segments without ever
// escaping above the root, matching the testable property in
// spec.md §8.
func Normpath(p string) string {
	leadingSlash := strings.HasPrefix(p, "/")
	trailingSlash := strings.HasSuffix(p, "/") && p != "/"

	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}

	joined := strings.Join(out, "/")
	if leadingSlash {
		joined = "/" + joined
	}
	if trailingSlash && joined != "/" {
		joined += "/"
	}
	if joined == "" {
		joined = "."
	}
	return joined
}

// Handler serves files rooted at Root. It is grounded on file.py's
// HTTPFileHandler: GET/HEAD only, Range support, and MIME guessing by
// extension.
type Handler struct {
	Root string
}

var rangeRe = regexp.MustCompile(`^bytes=(\d*)-(\d*)$`)

// Get implements the GET entry point for a route matching a file
// path capture group named "path".
func (h *Handler) Get(req *web.Request, resp *web.Response) web.Result {
	rel := req.Named["path"]
	clean := Normpath("/" + rel)
	full := filepath.Join(h.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))

	if !strings.HasPrefix(full, filepath.Clean(h.Root)) {
		panic(&web.Error{Code: 403})
	}

	f, err := os.Open(full)
	if err != nil {
		panic(&web.Error{Code: 404, Err: err})
	}
	// On success the returned stream owns f and the response writer
	// closes it; every other exit closes it here.
	streaming := false
	defer func() {
		if !streaming {
			f.Close()
		}
	}()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		panic(&web.Error{Code: 404})
	}

	ctype := mime.TypeByExtension(path.Ext(full))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	resp.Header.Set("Content-Type", ctype, true)
	resp.Header.Set("Accept-Ranges", "bytes", true)

	size := info.Size()
	rangeHeader := req.Header.Get("Range", "")
	if rangeHeader == "" {
		streaming = true
		return web.Result{Status: 200, Body: web.BodyStream{Reader: f, Length: size}}
	}

	start, end, ok := parseRange(rangeHeader, size)
	if !ok {
		resp.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", size), true)
		panic(&web.Error{Code: 416})
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		panic(&web.Error{Code: 500, Err: err})
	}
	length := end - start + 1
	resp.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size), true)
	streaming = true
	limited := struct {
		io.Reader
		io.Closer
	}{io.LimitReader(f, length), f}
	return web.Result{Status: 206, Body: web.BodyStream{Reader: limited, Length: length}}
}

// parseRange parses a single "bytes=a-b" range against a resource of
// the given size, per spec.md §8 scenario 3.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	m := rangeRe.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, false
	}
	if m[1] == "" && m[2] == "" {
		return 0, 0, false
	}
	if m[1] == "" {
		// suffix range: last N bytes
		n, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	}
	s, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || s >= size {
		return 0, 0, false
	}
	e := size - 1
	if m[2] != "" {
		parsed, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil || parsed < s {
			return 0, 0, false
		}
		if parsed < e {
			e = parsed
		}
	}
	return s, e, true
}
