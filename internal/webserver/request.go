package webserver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Request methods the server dispatches on.
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// Limits for discarding input left unread after a 505.
const (
	discardWait  = 50 * time.Millisecond
	discardLimit = 8 << 10
)

// errDropped marks a request that is abandoned without a response: a read
// timed out, the stream ended early, or the request line was malformed.
var errDropped = errors.New("request dropped")

// errRequestExpired is returned once RequestTimeout has passed.
var errRequestExpired = errors.New("request took too long")

// Request is the parsed form of one request. It lives only for the
// duration of a single connection.
type Request struct {
	Method  string
	Target  string
	Path    string
	Query   string
	Version string
	// Args holds the raw (undecoded) query-string arguments.
	Args          Args
	ContentLength int
	Body          []byte
	RemoteAddr    string

	// versionOK is false when the version token is unsupported or the
	// request line did not end in CRLF; headers are then left unread.
	versionOK bool
}

// readDeadliner is implemented by net.Conn.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// requestReader reads a request with a fresh read deadline before every
// line and before the body, so a stalled client costs at most one timeout
// per read. No deadline reaches past expires, which bounds a client that
// trickles lines just inside the per-read timeout.
type requestReader struct {
	br       *bufio.Reader
	deadline readDeadliner
	timeout  time.Duration
	expires  time.Time
	maxBody  int
}

func newRequestReader(r io.Reader, timeout, total time.Duration, maxLine, maxBody int) *requestReader {
	rr := &requestReader{
		br:      bufio.NewReaderSize(r, maxLine),
		timeout: timeout,
		maxBody: maxBody,
	}
	if total > 0 {
		rr.expires = time.Now().Add(total)
	}
	if d, ok := r.(readDeadliner); ok && timeout > 0 {
		rr.deadline = d
	}
	return rr
}

func (rr *requestReader) arm() error {
	now := time.Now()
	if !rr.expires.IsZero() && !now.Before(rr.expires) {
		return errRequestExpired
	}
	if rr.deadline == nil {
		return nil
	}
	d := now.Add(rr.timeout)
	if !rr.expires.IsZero() && rr.expires.Before(d) {
		d = rr.expires
	}
	return rr.deadline.SetReadDeadline(d)
}

// discard reads and drops pending input, giving up after discardLimit
// bytes or one short wait.
func (rr *requestReader) discard() {
	if rr.deadline != nil {
		wait := discardWait
		if rr.timeout < wait {
			wait = rr.timeout
		}
		_ = rr.deadline.SetReadDeadline(time.Now().Add(wait))
	}
	_, _ = io.CopyN(io.Discard, rr.br, discardLimit)
}

// readLine returns one line including its terminator.
func (rr *requestReader) readLine() (string, error) {
	if err := rr.arm(); err != nil {
		return "", err
	}
	line, err := rr.br.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		return "", fmt.Errorf("line longer than %d bytes", rr.br.Size())
	}
	if err != nil {
		return "", err
	}
	return string(line), nil
}

// read parses one request. A non-nil error always wraps errDropped. A
// request with an unsupported version is returned without reading headers.
func (rr *requestReader) read() (*Request, error) {
	line, err := rr.readLine()
	if err != nil {
		return nil, fmt.Errorf("%w: request line: %v", errDropped, err)
	}
	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}
	if !req.versionOK {
		return req, nil
	}

	if err := rr.readHeaders(req); err != nil {
		return nil, err
	}

	if req.Method == MethodPost {
		if req.ContentLength > rr.maxBody {
			return nil, fmt.Errorf("%w: body of %d bytes exceeds limit of %d", errDropped, req.ContentLength, rr.maxBody)
		}
		if err := rr.arm(); err != nil {
			return nil, fmt.Errorf("%w: %v", errDropped, err)
		}
		req.Body = make([]byte, req.ContentLength)
		if _, err := io.ReadFull(rr.br, req.Body); err != nil {
			return nil, fmt.Errorf("%w: body: %v", errDropped, err)
		}
	}
	return req, nil
}

// readHeaders consumes header lines up to the blank line. Only
// Content-Length is kept.
func (rr *requestReader) readHeaders(req *Request) error {
	for {
		line, err := rr.readLine()
		if err != nil {
			return fmt.Errorf("%w: headers: %v", errDropped, err)
		}
		if line == "\r\n" || line == "\n" {
			return nil
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return fmt.Errorf("%w: invalid Content-Length %q", errDropped, strings.TrimSpace(value))
		}
		req.ContentLength = n
	}
}

// parseRequestLine splits a raw request line (terminator included) into
// method, target and version. Anything but exactly three space-separated
// tokens is dropped.
func parseRequestLine(raw string) (*Request, error) {
	if !strings.HasSuffix(raw, "\n") {
		return nil, fmt.Errorf("%w: incomplete request line", errDropped)
	}
	crlf := strings.HasSuffix(raw, "\r\n")
	line := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")

	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: request line has %d tokens, want 3", errDropped, len(parts))
	}

	req := &Request{
		Method:  parts[0],
		Target:  parts[1],
		Version: parts[2],
	}
	req.versionOK = crlf && (req.Version == "HTTP/1.0" || req.Version == "HTTP/1.1")
	req.Path, req.Query, _ = strings.Cut(req.Target, "?")
	req.Args = parseArgs(req.Query)
	return req, nil
}
