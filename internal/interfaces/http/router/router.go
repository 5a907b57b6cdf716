package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIPrefix is where authenticated resources are mounted
const APIPrefix = "/api/v1"

// Resource is the route table of one REST resource, mounted under a prefix
// of the authenticated API group.
type Resource struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

func NewResource(prefix string) *Resource {
	return &Resource{prefix: prefix}
}

// Use adds middleware run before every route of the resource
func (r *Resource) Use(mw ...gin.HandlerFunc) *Resource {
	r.middleware = append(r.middleware, mw...)
	return r
}

func (r *Resource) GET(path string, h ...gin.HandlerFunc) *Resource {
	return r.add(http.MethodGet, path, h)
}

func (r *Resource) POST(path string, h ...gin.HandlerFunc) *Resource {
	return r.add(http.MethodPost, path, h)
}

func (r *Resource) PUT(path string, h ...gin.HandlerFunc) *Resource {
	return r.add(http.MethodPut, path, h)
}

func (r *Resource) DELETE(path string, h ...gin.HandlerFunc) *Resource {
	return r.add(http.MethodDelete, path, h)
}

func (r *Resource) add(method, path string, h []gin.HandlerFunc) *Resource {
	r.routes = append(r.routes, route{method: method, path: path, handlers: h})
	return r
}

func (r *Resource) mount(parent *gin.RouterGroup) {
	g := parent.Group(r.prefix, r.middleware...)
	for _, rt := range r.routes {
		g.Handle(rt.method, rt.path, rt.handlers...)
	}
}

// Mount creates the group at prefix guarded by mw and mounts every resource
// into it.
func Mount(engine *gin.Engine, prefix string, mw []gin.HandlerFunc, resources ...*Resource) *gin.RouterGroup {
	api := engine.Group(prefix, mw...)
	for _, r := range resources {
		r.mount(api)
	}
	return api
}
