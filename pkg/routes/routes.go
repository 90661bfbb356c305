// Package routes declares HTTP endpoints as data so each domain handler can
// describe its surface once and have it mounted on any ServeMux.
package routes

import (
	"net/http"
	"strings"
)

// Route binds an HTTP method and a pattern relative to its group prefix.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group collects the routes a single handler exposes under one prefix.
type Group struct {
	Prefix string
	Routes []Route
}

// MuxPattern returns the ServeMux pattern for r when mounted under prefix.
func (r Route) MuxPattern(prefix string) string {
	method := strings.ToUpper(r.Method)
	if method == "" {
		return prefix + r.Pattern
	}
	return method + " " + prefix + r.Pattern
}

// Register mounts every route of every group on mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		for _, r := range g.Routes {
			mux.HandleFunc(r.MuxPattern(g.Prefix), r.Handler)
		}
	}
}

// NewMux returns a ServeMux with the given groups registered.
func NewMux(groups ...Group) *http.ServeMux {
	mux := http.NewServeMux()
	Register(mux, groups...)
	return mux
}
