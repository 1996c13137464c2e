package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device represents a microweb server found on the network
type Device struct {
	// Instance is the advertised service instance name (e.g., "microweb-kitchen")
	Instance string

	// Hostname is the mDNS hostname (e.g., "kitchen.local.")
	Hostname string

	// IP is the address, IPv4 when one was advertised
	IP string

	// Port is the HTTP port
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "path=/", "srcvers=v1.2.0", "server=microweb"
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Instance, d.Hostname, net.JoinHostPort(d.IP, strconv.Itoa(d.Port)))
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// DocURL returns the URL of the device's static file root.
func (d *Device) DocURL() string {
	p := d.DocPath()
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	return d.BaseURL() + p
}

// DocPath returns the advertised static file prefix, "/" when absent.
func (d *Device) DocPath() string {
	if p := d.GetMetadata(TXTPath); p != "" {
		return p
	}
	return "/"
}

// Version returns the advertised software version.
func (d *Device) Version() string {
	return d.GetMetadata(TXTVersion)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
