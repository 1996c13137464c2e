package webserver

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/muurk/microweb/internal/logging"
	"go.uber.org/zap"
)

// StatusCode is the limited set of HTTP status codes the server emits.
type StatusCode int

const (
	StatusOK                      StatusCode = 200
	StatusBadRequest              StatusCode = 400
	StatusNotFound                StatusCode = 404
	StatusNotImplemented          StatusCode = 501
	StatusHTTPVersionNotSupported StatusCode = 505
)

// StatusText returns the reason phrase written on the status line.
func StatusText(code StatusCode) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusNotImplemented:
		return "Not Implemented"
	case StatusHTTPVersionNotSupported:
		return "Version Not Supported"
	default:
		return ""
	}
}

// ErrHeaderWritten is returned when a second status line is attempted on
// the same connection.
var ErrHeaderWritten = errors.New("response header already written")

// ResponseWriter frames a single response on a connection. Handlers receive
// one per request and must produce exactly one response through OK, OKData
// or Err (or WriteHeader followed by Write).
//
// Responses are close-delimited: no Content-Length is ever sent and the
// server closes the connection once the handler returns.
type ResponseWriter struct {
	w          io.Writer
	remoteAddr string
	assets     *assets
	deadline   writeDeadliner
	timeout    time.Duration

	status      StatusCode
	contentType string
	wroteHeader bool
	err         error
}

// writeDeadliner is implemented by net.Conn.
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

func newResponseWriter(w io.Writer, remoteAddr string, a *assets, timeout time.Duration) *ResponseWriter {
	rw := &ResponseWriter{w: w, remoteAddr: remoteAddr, assets: a, timeout: timeout}
	if d, ok := w.(writeDeadliner); ok && timeout > 0 {
		rw.deadline = d
	}
	return rw
}

// WriteHeader writes the status line and headers. It may be called once.
func (rw *ResponseWriter) WriteHeader(code StatusCode, contentType string) error {
	if rw.wroteHeader {
		logging.Warn("Ignoring second response header",
			zap.String("remote_addr", rw.remoteAddr),
			zap.Int("first_status", int(rw.status)),
			zap.Int("second_status", int(code)),
		)
		return ErrHeaderWritten
	}
	rw.wroteHeader = true
	rw.status = code
	rw.contentType = contentType

	head := "HTTP/1.1 " + strconv.Itoa(int(code)) + " " + StatusText(code) + "\r\n" +
		"Content-Type: " + contentType + "\r\n" +
		"Connection: close\r\n" +
		"\r\n"
	logging.LogRawBytes("HTTP response header", []byte(head))

	if _, err := io.WriteString(rw, head); err != nil {
		return err
	}
	logging.LogHTTPResponse(rw.remoteAddr, int(code), contentType)
	return nil
}

// Write writes body bytes under a fresh write deadline, so a client that
// stops reading costs at most one timeout. After the first failed write
// every later write returns the same error without touching the connection.
func (rw *ResponseWriter) Write(p []byte) (int, error) {
	if rw.err != nil {
		return 0, rw.err
	}
	if rw.deadline != nil {
		if err := rw.deadline.SetWriteDeadline(time.Now().Add(rw.timeout)); err != nil {
			rw.err = fmt.Errorf("write response: %w", err)
			return 0, rw.err
		}
	}
	n, err := rw.w.Write(p)
	if err != nil {
		rw.err = fmt.Errorf("write response: %w", err)
		return n, rw.err
	}
	return n, nil
}

// OK writes a success response. If body names an existing regular file in
// the web root, the file is streamed (or rendered, for .p.html templates)
// instead of the literal string.
func (rw *ResponseWriter) OK(code StatusCode, contentType, body string) error {
	if err := rw.WriteHeader(code, contentType); err != nil {
		return err
	}
	if rw.assets != nil {
		if name, ok := rw.assets.fileName(body); ok {
			if err := rw.assets.render(rw, name); err != nil {
				logging.Warn("File response truncated",
					zap.String("remote_addr", rw.remoteAddr),
					zap.String("file", name),
					zap.Error(err),
				)
				return err
			}
			return nil
		}
	}
	_, err := io.WriteString(rw, body)
	return err
}

// OKData writes a success response whose body is always the literal string.
func (rw *ResponseWriter) OKData(code StatusCode, contentType, body string) error {
	if err := rw.WriteHeader(code, contentType); err != nil {
		return err
	}
	_, err := io.WriteString(rw, body)
	return err
}

// Err writes an error response with a minimal HTML body.
func (rw *ResponseWriter) Err(code StatusCode, reason string) error {
	if err := rw.WriteHeader(code, "text/html"); err != nil {
		return err
	}
	_, err := io.WriteString(rw, "<h1>"+reason+"</h1>")
	return err
}

// Status returns the status code written, or 0 if no header was written.
func (rw *ResponseWriter) Status() StatusCode {
	return rw.status
}

// Written reports whether a status line has been written.
func (rw *ResponseWriter) Written() bool {
	return rw.wroteHeader
}

// RemoteAddr returns the client address of the connection being served.
func (rw *ResponseWriter) RemoteAddr() string {
	return rw.remoteAddr
}
