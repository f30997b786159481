// Package webindex renders a directory listing when a directory is
// requested and no index.html is present, grounded on
// original_source/fooster/web/fancyindex.py. It builds on webfile and
// renders through webpage's template mechanism.
package webindex

import (
	"os"
	"path"
	"sort"
	"time"

	"github.com/yourusername/fooweb/pkg/web"
	"github.com/yourusername/fooweb/pkg/webfile"
	"github.com/yourusername/fooweb/pkg/webpage"
)

// Entry is one row of a rendered directory listing.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Listing is the template data passed to the "index" template.
type Listing struct {
	Path    string
	Entries []Entry
}

// Handler serves a directory listing for Root when no index.html
// exists in the requested directory.
type Handler struct {
	Root     string
	Renderer *webpage.Renderer
}

func (h *Handler) Get(req *web.Request, resp *web.Response) web.Result {
	rel := req.Named["path"]
	clean := webfile.Normpath("/" + rel)
	dir := path.Join(h.Root, clean)

	if _, err := os.Stat(path.Join(dir, "index.html")); err == nil {
		fh := &webfile.Handler{Root: h.Root}
		req.Named["path"] = path.Join(clean, "index.html")
		return fh.Get(req, resp)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		panic(&web.Error{Code: 404, Err: err})
	}

	listing := Listing{Path: clean}
	for _, e := range entries {
		info, ierr := e.Info()
		if ierr != nil {
			continue
		}
		listing.Entries = append(listing.Entries, Entry{
			Name:    e.Name(),
			IsDir:   e.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(listing.Entries, func(i, j int) bool {
		a, b := listing.Entries[i], listing.Entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return a.Name < b.Name
	})

	resp.Header.Set("Content-Type", "text/html; charset=utf-8", true)
	result, rerr := h.Renderer.Render(200, "index", listing)
	if rerr != nil {
		panic(&web.Error{Code: 500, Err: rerr})
	}
	return result
}
