package webserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"runtime/debug"
	"strings"
	"time"

	"github.com/muurk/microweb/internal/logging"
	"go.uber.org/zap"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultDocPath      = "/"
	DefaultReadTimeout    = 500 * time.Millisecond
	DefaultWriteTimeout   = 500 * time.Millisecond
	DefaultRequestTimeout = 5 * time.Second
	DefaultPollInterval   = time.Millisecond
	DefaultMaxLineBytes   = 1024
	DefaultMaxBodyBytes   = 4096
)

// ErrServerStarted is returned by registration calls made after Begin.
var ErrServerStarted = errors.New("server already started; register routes before Begin")

// ErrNilHandler is returned when registering a nil handler.
var ErrNilHandler = errors.New("nil handler")

// Config holds the server configuration
type Config struct {
	Host           string
	WebRoot        fs.FS         // Files served under DocPath; nil serves nothing
	DocPath        string        // URL prefix static requests must start with
	ReadTimeout    time.Duration // Per-read deadline on accepted connections
	WriteTimeout   time.Duration // Per-write deadline on accepted connections
	RequestTimeout time.Duration // Upper bound on reading one whole request
	PollInterval   time.Duration // Accept wait per HandleClient call; must be > 0
	MaxLineBytes   int           // Longest accepted request or header line
	MaxBodyBytes   int           // Largest accepted POST body
	MIMETypes      MIMETable     // nil uses DefaultMIMETypes
}

// Server is a single-threaded HTTP/1.x server. Routes and template data are
// registered before Begin; afterwards the caller drives the server with
// HandleClient or Serve from a single goroutine.
type Server struct {
	config   Config
	router   *Router
	assets   *assets
	listener *Listener
	started  bool
}

// New creates a server, filling unset Config fields with defaults.
func New(config Config) *Server {
	if config.DocPath == "" {
		config.DocPath = DefaultDocPath
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.MaxLineBytes <= 0 {
		config.MaxLineBytes = DefaultMaxLineBytes
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.MIMETypes == nil {
		config.MIMETypes = DefaultMIMETypes
	}

	return &Server{
		config: config,
		router: NewRouter(),
		assets: &assets{
			fsys: config.WebRoot,
			mime: config.MIMETypes,
			data: TemplateData{},
		},
		listener: NewListener(config.Host),
	}
}

func (s *Server) checkSetup() error {
	if s.started {
		return ErrServerStarted
	}
	return nil
}

// OnPath registers a GET handler for an exact path.
func (s *Server) OnPath(path string, h Handler) error {
	return s.register(MethodGet, path, h)
}

// OnPost registers a POST handler for an exact path.
func (s *Server) OnPost(path string, h Handler) error {
	return s.register(MethodPost, path, h)
}

func (s *Server) register(method, path string, h Handler) error {
	if err := s.checkSetup(); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("%s %s: %w", method, path, ErrNilHandler)
	}
	s.router.Handle(method, path, h)
	return nil
}

// OnNotFound registers the responder used when static resolution fails.
func (s *Server) OnNotFound(h NotFoundHandler) error {
	if err := s.checkSetup(); err != nil {
		return err
	}
	s.router.SetNotFound(h)
	return nil
}

// SetDocPath sets the URL prefix static requests must start with.
func (s *Server) SetDocPath(prefix string) error {
	if err := s.checkSetup(); err != nil {
		return err
	}
	s.config.DocPath = prefix
	return nil
}

// SetTemplateData replaces the template substitution map. The server keeps
// the caller's map, so later changes to its entries are visible to templates
// rendered afterwards.
func (s *Server) SetTemplateData(data TemplateData) error {
	if err := s.checkSetup(); err != nil {
		return err
	}
	s.assets.data = data
	return nil
}

// Routes returns the registered paths per method.
func (s *Server) Routes() map[string][]string {
	return s.router.Routes()
}

// Begin binds the listener on port and ends the setup phase.
func (s *Server) Begin(port int) error {
	if err := s.checkSetup(); err != nil {
		return err
	}
	if err := s.listener.Start(port); err != nil {
		return err
	}
	s.started = true
	logging.Info("Server listening for connections",
		zap.String("addr", s.listener.Addr().String()),
		zap.String("doc_path", s.config.DocPath),
	)
	return nil
}

// Addr returns the bound listener address, or nil before Begin.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close releases the listening socket.
func (s *Server) Close() error {
	logging.Info("Shutting down server...")
	return s.listener.Stop()
}

// HandleClient performs one poll-and-serve cycle. It reports whether a
// connection was served. Errors are returned only when the listener cannot
// be polled at all (not started, closed, zero poll interval).
func (s *Server) HandleClient() (bool, error) {
	conn, err := s.listener.PollOnce(s.config.PollInterval)
	if err != nil {
		if errors.Is(err, net.ErrClosed) || errors.Is(err, ErrNotStarted) || errors.Is(err, ErrZeroPoll) {
			return false, err
		}
		logging.Warn("Failed to accept connection", zap.Error(err))
		return false, nil
	}
	if conn == nil {
		return false, nil
	}

	remoteAddr := conn.RemoteAddr().String()
	defer func() {
		_ = conn.Close()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()
	logging.LogConnection(remoteAddr, "connection_accepted")

	s.serveConn(conn, remoteAddr)
	return true, nil
}

// Serve calls HandleClient until ctx is cancelled or the listener fails.
// It returns nil on cancellation or after Close.
func (s *Server) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if _, err := s.HandleClient(); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// serveConn parses and answers one request. Panics from handlers are
// recovered here so one bad request cannot stop the serve loop.
func (s *Server) serveConn(conn io.ReadWriter, remoteAddr string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Recovered from panic while handling request",
				zap.String("remote_addr", remoteAddr),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	rr := newRequestReader(conn, s.config.ReadTimeout, s.config.RequestTimeout, s.config.MaxLineBytes, s.config.MaxBodyBytes)
	req, err := rr.read()
	if err != nil {
		logging.Debug("Request dropped without response",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}
	req.RemoteAddr = remoteAddr

	w := newResponseWriter(conn, remoteAddr, s.assets, s.config.WriteTimeout)
	s.dispatch(w, req)
	if w.err != nil {
		logging.Warn("Response truncated by write failure",
			zap.String("remote_addr", remoteAddr),
			zap.String("path", req.Path),
			zap.Error(w.err),
		)
		return
	}
	logging.Debug("Request served",
		zap.String("remote_addr", remoteAddr),
		zap.String("path", req.Path),
		zap.Int("status", int(w.Status())),
	)

	// Headers after an unsupported version were never read. Closing with
	// unread input resets the connection, so drop what is pending first.
	if !req.versionOK {
		rr.discard()
	}
}

// dispatch picks exactly one response path for req.
func (s *Server) dispatch(w *ResponseWriter, req *Request) {
	logging.LogHTTPRequest(req.RemoteAddr, req.Method, req.Path, req.Args)

	switch {
	case !req.versionOK:
		_ = w.Err(StatusHTTPVersionNotSupported, StatusText(StatusHTTPVersionNotSupported))

	case req.Method == MethodPost:
		h, ok := s.router.Lookup(MethodPost, req.Path)
		if !ok {
			_ = w.Err(StatusNotFound, StatusText(StatusNotFound))
			return
		}
		s.invoke(w, req, h, parseForm(req.Body))

	case req.Method != MethodGet:
		_ = w.Err(StatusNotImplemented, StatusText(StatusNotImplemented))

	default:
		if h, ok := s.router.Lookup(MethodGet, req.Path); ok {
			s.invoke(w, req, h, req.Args)
			return
		}
		if !strings.HasPrefix(req.Path, s.config.DocPath) || !validURLPath(req.Path) {
			_ = w.Err(StatusBadRequest, StatusText(StatusBadRequest))
			return
		}
		s.serveStatic(w, req.Path)
	}
}

func (s *Server) invoke(w *ResponseWriter, req *Request, h Handler, args Args) {
	h.ServeRequest(w, args)
	if !w.Written() {
		logging.Warn("Handler returned without writing a response",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
		)
	}
}

// serveStatic answers a GET that matched no route.
func (s *Server) serveStatic(w *ResponseWriter, urlPath string) {
	name, ok := s.assets.resolve(urlPath)
	if !ok {
		if s.router.notFound != nil {
			s.router.notFound.ServeNotFound(w)
			return
		}
		_ = w.Err(StatusNotFound, StatusText(StatusNotFound))
		return
	}

	if err := w.WriteHeader(StatusOK, s.assets.mime.ContentType(name)); err != nil {
		return
	}
	if err := s.assets.render(w, name); err != nil {
		logging.Warn("Static response truncated",
			zap.String("remote_addr", w.RemoteAddr()),
			zap.String("file", name),
			zap.Error(err),
		)
	}
}
