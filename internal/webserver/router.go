package webserver

import "sort"

// Handler responds to a registered GET or POST path. args holds the raw
// query arguments for GET and the form-decoded body for POST.
type Handler interface {
	ServeRequest(w *ResponseWriter, args Args)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(w *ResponseWriter, args Args)

// ServeRequest calls f(w, args).
func (f HandlerFunc) ServeRequest(w *ResponseWriter, args Args) {
	f(w, args)
}

// NotFoundHandler responds when static resolution finds nothing.
type NotFoundHandler interface {
	ServeNotFound(w *ResponseWriter)
}

// NotFoundFunc adapts a function to NotFoundHandler.
type NotFoundFunc func(w *ResponseWriter)

// ServeNotFound calls f(w).
func (f NotFoundFunc) ServeNotFound(w *ResponseWriter) {
	f(w)
}

// Router holds the exact-match path tables. Keys are case-sensitive and a
// later registration for the same path replaces the earlier one.
type Router struct {
	get      map[string]Handler
	post     map[string]Handler
	notFound NotFoundHandler
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{
		get:  make(map[string]Handler),
		post: make(map[string]Handler),
	}
}

// Handle registers h for method and path. Methods other than GET and POST
// are ignored and reported as false.
func (rt *Router) Handle(method, path string, h Handler) bool {
	switch method {
	case MethodGet:
		rt.get[path] = h
	case MethodPost:
		rt.post[path] = h
	default:
		return false
	}
	return true
}

// SetNotFound registers the fallback for unresolved static paths.
func (rt *Router) SetNotFound(h NotFoundHandler) {
	rt.notFound = h
}

// Lookup returns the handler registered for method and path.
func (rt *Router) Lookup(method, path string) (Handler, bool) {
	var h Handler
	var ok bool
	switch method {
	case MethodGet:
		h, ok = rt.get[path]
	case MethodPost:
		h, ok = rt.post[path]
	}
	return h, ok
}

// Routes returns the sorted registered paths per method, for display.
func (rt *Router) Routes() map[string][]string {
	out := map[string][]string{}
	for method, table := range map[string]map[string]Handler{MethodGet: rt.get, MethodPost: rt.post} {
		for p := range table {
			out[method] = append(out[method], p)
		}
		sort.Strings(out[method])
	}
	return out
}
