// Package module mounts self-contained HTTP surfaces, each with its own
// middleware stack, under path prefixes of a single server.
package module

import (
	"cmp"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/JaimeStill/sieve/pkg/middleware"
)

// Module serves an inner handler beneath prefix. Requests reach the inner
// handler with the prefix removed, so its routes are written relative to it.
type Module struct {
	prefix     string
	inner      http.Handler
	middleware middleware.System

	once    sync.Once
	handler http.Handler
}

// New returns a Module for prefix, which must begin with "/" and must not
// end with one. New panics on an invalid prefix.
func New(prefix string, inner http.Handler) *Module {
	if err := validatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{
		prefix:     prefix,
		inner:      inner,
		middleware: middleware.New(),
	}
}

func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends mw to the module stack. The stack is fixed by the first
// request, so all middleware must be added before the module serves.
func (m *Module) Use(mw middleware.Middleware) {
	m.middleware.Use(mw)
}

func (m *Module) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.once.Do(func() {
		m.handler = m.middleware.Apply(m.inner)
	})
	m.handler.ServeHTTP(w, m.strip(r))
}

func (m *Module) matches(path string) bool {
	rest, ok := strings.CutPrefix(path, m.prefix)
	return ok && (rest == "" || rest[0] == '/')
}

func (m *Module) strip(r *http.Request) *http.Request {
	path := strings.TrimPrefix(r.URL.Path, m.prefix)
	if path == "" {
		path = "/"
	}

	r2 := new(http.Request)
	*r2 = *r
	r2.URL = new(url.URL)
	*r2.URL = *r.URL
	r2.URL.Path = path
	r2.URL.RawPath = ""
	return r2
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case strings.HasSuffix(prefix, "/"):
		return fmt.Errorf("module prefix must not end with /: %s", prefix)
	}
	return nil
}

// Router dispatches to the mounted module with the longest matching prefix
// and falls back to a native ServeMux for everything else.
type Router struct {
	mu      sync.RWMutex
	modules []*Module
	native  *http.ServeMux
}

func NewRouter() *Router {
	return &Router{native: http.NewServeMux()}
}

// HandleNative registers pattern on the fallback mux.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.native.HandleFunc(pattern, handler)
}

// Mount adds m. A module mounted at an existing prefix replaces it.
func (r *Router) Mount(m *Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.modules = slices.DeleteFunc(r.modules, func(x *Module) bool {
		return x.prefix == m.prefix
	})
	r.modules = append(r.modules, m)
	slices.SortFunc(r.modules, func(a, b *Module) int {
		return cmp.Compare(len(b.prefix), len(a.prefix))
	})
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if p := req.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
		req.URL.Path = strings.TrimSuffix(p, "/")
	}

	r.mu.RLock()
	var target *Module
	for _, m := range r.modules {
		if m.matches(req.URL.Path) {
			target = m
			break
		}
	}
	r.mu.RUnlock()

	if target != nil {
		target.ServeHTTP(w, req)
		return
	}
	r.native.ServeHTTP(w, req)
}
