package webserver

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

var (
	// ErrZeroPoll is returned by PollOnce for a zero or negative wait. Every
	// poll must block for a small positive time; a zero-timeout poll faults
	// some embedded network stacks.
	ErrZeroPoll = errors.New("poll wait must be positive")
	// ErrNotStarted is returned when polling a listener that was never started.
	ErrNotStarted = errors.New("listener not started")
)

// Listener owns the server socket and hands out at most one connection per
// poll. It is not safe for concurrent use; the serve loop is its only user.
//
// The listen backlog is left to the operating system because the net
// package does not expose it; one-at-a-time service is guaranteed by the
// serve loop, which never polls while a connection is open.
type Listener struct {
	host   string
	ln     *net.TCPListener
	closed bool
}

// NewListener returns a listener that will bind to host (empty for all
// interfaces) when started.
func NewListener(host string) *Listener {
	return &Listener{host: host}
}

// Start binds and listens on port. Port 0 picks an ephemeral port.
func (l *Listener) Start(port int) error {
	if l.ln != nil && !l.closed {
		return fmt.Errorf("listener already bound to %s", l.ln.Addr())
	}
	addr := net.JoinHostPort(l.host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	l.ln = ln.(*net.TCPListener)
	l.closed = false
	return nil
}

// Stop closes the socket. Stopping twice is a no-op.
func (l *Listener) Stop() error {
	if l.ln == nil || l.closed {
		return nil
	}
	l.closed = true
	return l.ln.Close()
}

// Addr returns the bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// PollOnce waits up to wait for a pending connection. It returns (nil, nil)
// when none arrived in time.
func (l *Listener) PollOnce(wait time.Duration) (net.Conn, error) {
	if wait <= 0 {
		return nil, ErrZeroPoll
	}
	if l.ln == nil {
		return nil, ErrNotStarted
	}
	if l.closed {
		return nil, net.ErrClosed
	}
	if err := l.ln.SetDeadline(time.Now().Add(wait)); err != nil {
		return nil, err
	}
	conn, err := l.ln.Accept()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	return conn, nil
}
