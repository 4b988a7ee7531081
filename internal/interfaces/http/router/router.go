// Package router assembles the gin engine of the web dashboards and the JSON API.
package router

import (
	"github.com/bimate/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
)

// Guard builds the access check of one link scope
type Guard func(scope auth.LinkScope) gin.HandlerFunc

// Router mounts dashboard pages at the root and JSON groups under /api/<version>.
// Groups declare the link scope they belong to and whether they are rate limited;
// the router turns those declarations into middleware.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	guard      Guard
	limiter    gin.HandlerFunc
	pages      []*Group
	api        []*Group
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithGuard sets the link check applied to scoped groups
func WithGuard(g Guard) RouterOption {
	return func(r *Router) {
		r.guard = g
	}
}

// WithLimiter sets the middleware applied to limited routes
func WithLimiter(h gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.limiter = h
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Page declares a group of HTML routes mounted at the root
func (r *Router) Page(prefix string) *Group {
	g := &Group{prefix: prefix}
	r.pages = append(r.pages, g)
	return g
}

// API declares a group of JSON routes mounted under the versioned prefix
func (r *Router) API(prefix string) *Group {
	g := &Group{prefix: prefix}
	r.api = append(r.api, g)
	return g
}

// Setup registers every declared group with the engine
func (r *Router) Setup() {
	for _, g := range r.pages {
		g.mount(r, &r.engine.RouterGroup)
	}
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, g := range r.api {
		g.mount(r, api)
	}
}

// Group is a set of read-only routes sharing a prefix and an access policy
type Group struct {
	prefix string
	scope  auth.LinkScope
	routes []route
}

type route struct {
	path     string
	limited  bool
	handlers []gin.HandlerFunc
}

// Scope puts the group behind the link check of scope
func (g *Group) Scope(scope auth.LinkScope) *Group {
	g.scope = scope
	return g
}

// GET registers a route
func (g *Group) GET(path string, handlers ...gin.HandlerFunc) *Group {
	g.routes = append(g.routes, route{path: path, handlers: handlers})
	return g
}

// Limited registers a route that also passes the rate limiter, for endpoints
// that query the database on every keystroke or build files.
func (g *Group) Limited(path string, handlers ...gin.HandlerFunc) *Group {
	g.routes = append(g.routes, route{path: path, limited: true, handlers: handlers})
	return g
}

func (g *Group) mount(r *Router, parent *gin.RouterGroup) {
	group := parent.Group(g.prefix)
	if g.scope != "" && r.guard != nil {
		group.Use(r.guard(g.scope))
	}
	for _, rt := range g.routes {
		handlers := rt.handlers
		if rt.limited && r.limiter != nil {
			handlers = append([]gin.HandlerFunc{r.limiter}, handlers...)
		}
		group.GET(rt.path, handlers...)
	}
}
