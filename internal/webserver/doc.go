// Package webserver implements a single-threaded HTTP/1.x server for
// resource-constrained devices.
//
// The server accepts one connection at a time, parses a single request under
// a per-read deadline and an overall request deadline, dispatches it and
// closes the connection. Every response write has its own deadline. There is no
// keep-alive, no chunked encoding and no Content-Length on responses: every
// body is delimited by the connection closing.
//
// # Dispatch
//
// The first matching rule answers the request:
//
//  1. Version other than HTTP/1.0 or HTTP/1.1 (with CRLF): 505
//  2. POST to a registered path: handler with form-decoded body, else 404
//  3. Any method other than GET: 501
//  4. GET to a registered path: handler with raw query arguments
//  5. Path outside the document root: 400
//  6. Static file, with index.html then index.p.html for paths ending in "/"
//
// Unresolved static paths go to the not-found handler, or get a 404.
// Requests whose request line or headers never fully arrive are dropped
// without a response.
//
// # Templates
//
// Files ending in .p.html are rendered line by line, replacing {name} with
// the matching TemplateData value. "{{" and "}}" are literal braces. A
// missing value stops rendering; lines already sent stay sent.
//
// # Usage Example
//
//	srv := webserver.New(webserver.Config{WebRoot: os.DirFS("www")})
//	_ = srv.OnPath("/pulse", webserver.HandlerFunc(func(w *webserver.ResponseWriter, args webserver.Args) {
//	    _ = w.OKData(webserver.StatusOK, "text/plain", "OK")
//	}))
//	_ = srv.SetTemplateData(webserver.TemplateData{"ssid": "home"})
//	if err := srv.Begin(80); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	for {
//	    if _, err := srv.HandleClient(); err != nil {
//	        break
//	    }
//	}
//
// # Thread Safety
//
// None. Registration happens before Begin (later calls return
// ErrServerStarted) and HandleClient, Serve and Close belong to one
// goroutine. Handlers run on that goroutine too, so they may read and
// update the TemplateData map without locking.
package webserver
