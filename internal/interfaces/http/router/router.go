// Package router assembles the gin engine: the middleware chain, the versioned
// API groups and the operational endpoints.
package router

import (
	"net/http"
	"path"
	"sort"

	"github.com/gin-gonic/gin"
)

// ResourceHandler is the CRUD surface every payables resource exposes
type ResourceHandler interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	GetByID(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
}

// group is a route tree that is declared first and mounted on an engine later
type group struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	children   []*group
}

func newGroup(prefix string, middleware ...gin.HandlerFunc) *group {
	return &group{prefix: prefix, middleware: middleware}
}

func (g *group) handle(method, p string, h gin.HandlerFunc) *group {
	g.routes = append(g.routes, route{method: method, path: p, handler: h})
	return g
}

func (g *group) child(prefix string, middleware ...gin.HandlerFunc) *group {
	c := newGroup(prefix, middleware...)
	g.children = append(g.children, c)
	return c
}

// resource declares the collection and item routes of h under prefix and
// returns the child group for extra item routes
func (g *group) resource(prefix string, h ResourceHandler) *group {
	return g.child(prefix).
		handle(http.MethodPost, "", h.Create).
		handle(http.MethodGet, "", h.List).
		handle(http.MethodGet, "/:id", h.GetByID).
		handle(http.MethodPut, "/:id", h.Update).
		handle(http.MethodDelete, "/:id", h.Delete)
}

func (g *group) mount(parent gin.IRouter) {
	rg := parent.Group(g.prefix, g.middleware...)
	for _, r := range g.routes {
		rg.Handle(r.method, r.path, r.handler)
	}
	for _, c := range g.children {
		c.mount(rg)
	}
}

// table lists "METHOD /full/path" for every declared route, sorted
func (g *group) table(base string) []string {
	var out []string
	var walk func(*group, string)
	walk = func(n *group, at string) {
		at = path.Join(at, n.prefix)
		for _, r := range n.routes {
			out = append(out, r.method+" "+path.Join(at, r.path))
		}
		for _, c := range n.children {
			walk(c, at)
		}
	}
	walk(g, base)
	sort.Strings(out)
	return out
}
