// Command fooweb-example wires the core server together with the
// logging and static-file mixins, replacing the teacher's benchmark
// binaries with a small runnable demonstration of this module.
package main

import (
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourusername/fooweb/pkg/web"
	"github.com/yourusername/fooweb/pkg/webfile"
	"github.com/yourusername/fooweb/pkg/weblog"
	"github.com/yourusername/fooweb/pkg/webmetrics"
)

func main() {
	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zlog.Sync()

	cfg := web.DefaultConfig()
	cfg.Addr = ":8080"
	cfg.Routes = web.NewRouteTable()
	cfg.ErrorRoutes = web.NewRouteTable()
	cfg.Access = weblog.NewAccessLogger(zlog)
	cfg.Diag = weblog.New(zlog)
	cfg.Metrics = webmetrics.NewRecorder(prometheus.DefaultRegisterer)

	root := &helloHandler{}
	cfg.Routes.Add("/", func(map[string]string, []string) web.Handler { return root })

	files := &webfile.Handler{Root: "./public"}
	cfg.Routes.Add("/static/(?P<path>.*)", func(named map[string]string, _ []string) web.Handler {
		return web.NewMethodTable(map[string]web.MethodFunc{
			"GET": files.Get,
		})
	})

	srv := web.NewServer(cfg)
	if err := srv.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}
	log.Printf("listening on %s", cfg.Addr)

	for srv.IsRunning() {
		time.Sleep(time.Second)
	}
}

type helloHandler struct{}

func (h *helloHandler) Method(method string) (web.MethodFunc, bool) {
	if method != "GET" {
		return nil, false
	}
	return func(req *web.Request, resp *web.Response) web.Result {
		return web.Result{Status: 200, Body: "OK"}
	}, true
}
func (h *helloHandler) AllowedMethods() []string          { return []string{"GET"} }
func (h *helloHandler) IsReaderMethod(method string) bool { return true }
func (h *helloHandler) Decode(b []byte) ([]byte, error)   { return b, nil }
func (h *helloHandler) Encode(r web.Result) (web.Result, error) { return r, nil }
func (h *helloHandler) CheckContinue(*web.Request) error        { return nil }
