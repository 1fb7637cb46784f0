package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dimfeld/httptreemux"
	"github.com/gorilla/handlers"
	"github.com/simplege/gamenet/netsync"
	"github.com/unrolled/render"
)

// StatusSource is implemented by netsync.Host, Status must be safe to call
// from the HTTP goroutines.
type StatusSource interface {
	Status() *netsync.Status
}

type R struct {
	Source StatusSource
}

type Call struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

func NewRouter(source StatusSource) *httptreemux.TreeMux {
	router, impl := httptreemux.New(), &R{Source: source}
	router.POST("/", impl.handle)
	registerHandlers(router)
	return router
}

func registerHandlers(router *httptreemux.TreeMux) {
	router.MethodNotAllowedHandler = func(w http.ResponseWriter, r *http.Request, _ map[string]httptreemux.HandlerFunc) {
		render.New().JSON(w, http.StatusNotFound, map[string]any{})
	}
	router.NotFoundHandler = func(w http.ResponseWriter, r *http.Request) {
		render.New().JSON(w, http.StatusNotFound, map[string]any{})
	}
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, rcv any) {
		err := fmt.Errorf("%v\n%s", rcv, debug.Stack())
		render.New().JSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func (impl *R) handle(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var call Call
	d := json.NewDecoder(r.Body)
	d.UseNumber()
	if err := d.Decode(&call); err != nil {
		render.New().JSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	renderer := &Render{w: w, impl: render.New()}
	switch call.Method {
	case "getinfo":
		renderer.RenderData(getInfo(impl.Source))
	case "listpeers":
		renderer.RenderData(listPeers(impl.Source))
	case "getmetric":
		metric, err := getMetric(impl.Source)
		if err != nil {
			renderer.RenderError(err)
		} else {
			renderer.RenderData(metric)
		}
	default:
		renderer.RenderError(fmt.Errorf("invalid method %s", call.Method))
	}
}

type Render struct {
	w    http.ResponseWriter
	impl *render.Render
}

func (r *Render) RenderData(data any) {
	r.impl.JSON(r.w, http.StatusOK, map[string]any{"data": data})
}

func (r *Render) RenderError(err error) {
	r.impl.JSON(r.w, http.StatusOK, map[string]any{"error": err.Error()})
}

func handleCORS(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Access-Control-Allow-Headers", "Content-Type,Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "OPTIONS,GET,POST")
		w.Header().Set("Access-Control-Max-Age", "600")
		if r.Method == "OPTIONS" {
			render.New().JSON(w, http.StatusOK, map[string]any{})
		} else {
			handler.ServeHTTP(w, r)
		}
	})
}

func NewHandler(source StatusSource) http.Handler {
	router := NewRouter(source)
	handler := handleCORS(router)
	return handlers.ProxyHeaders(handler)
}

func NewServer(source StatusSource, port int) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: NewHandler(source),
	}
}
