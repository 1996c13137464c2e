package discovery

import (
	"errors"
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/microweb/internal/logging"
	"go.uber.org/zap"
)

// ErrAlreadyAnnounced is returned by Start on a running Announcer.
var ErrAlreadyAnnounced = errors.New("discovery: already announced")

// registerFunc registers the service and returns its shutdown function.
// Tests replace it to avoid touching the network.
var registerFunc = func(instance, service, domain string, port int, txt []string) (func(), error) {
	server, err := zeroconf.Register(instance, service, domain, port, txt, nil)
	if err != nil {
		return nil, err
	}
	return server.Shutdown, nil
}

// Announcer advertises a running server as an _http._tcp service.
type Announcer struct {
	Instance string
	Port     int
	DocPath  string
	Version  string

	mu       sync.Mutex
	shutdown func()
}

// TXT returns the TXT records the announcer publishes.
func (a *Announcer) TXT() []string {
	docPath := a.DocPath
	if docPath == "" {
		docPath = "/"
	}
	txt := []string{
		TXTServer + "=" + ServerName,
		TXTPath + "=" + docPath,
	}
	if a.Version != "" {
		txt = append(txt, TXTVersion+"="+a.Version)
	}
	return txt
}

// Start registers the service on all multicast interfaces.
func (a *Announcer) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.shutdown != nil {
		return ErrAlreadyAnnounced
	}
	if a.Instance == "" {
		return fmt.Errorf("discovery: instance name required")
	}
	if a.Port <= 0 || a.Port > 65535 {
		return fmt.Errorf("discovery: invalid port %d", a.Port)
	}

	shutdown, err := registerFunc(a.Instance, ServiceType, ServiceDomain, a.Port, a.TXT())
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	a.shutdown = shutdown

	logging.Info("mDNS service registered",
		zap.String("instance", a.Instance),
		zap.String("service", ServiceType),
		zap.Int("port", a.Port),
		zap.Strings("txt", a.TXT()))
	return nil
}

// Stop withdraws the announcement. Calling Stop on a stopped Announcer is a no-op.
func (a *Announcer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.shutdown == nil {
		return
	}
	a.shutdown()
	a.shutdown = nil
	logging.Info("mDNS service withdrawn", zap.String("instance", a.Instance))
}
