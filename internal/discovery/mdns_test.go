package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func newEntry(instance, host string, port int, ipv4, ipv6 []net.IP, txt ...string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	entry.HostName = host
	entry.Port = port
	entry.AddrIPv4 = ipv4
	entry.AddrIPv6 = ipv6
	entry.Text = txt
	return entry
}

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name:     "microweb device with IPv4",
			entry:    newEntry("kitchen", "kitchen.local.", 80, []net.IP{net.ParseIP("192.168.4.16")}, nil, "server=microweb", "path=/", "srcvers=v1.0.0"),
			wantIP:   "192.168.4.16",
			wantPort: 80,
		},
		{
			name:     "custom port",
			entry:    newEntry("garage", "garage.local.", 8080, []net.IP{net.ParseIP("10.0.0.5")}, nil, "server=microweb"),
			wantIP:   "10.0.0.5",
			wantPort: 8080,
		},
		{
			name:     "no port defaults to 80",
			entry:    newEntry("shed", "shed.local.", 0, []net.IP{net.ParseIP("172.16.0.1")}, nil, "server=microweb"),
			wantIP:   "172.16.0.1",
			wantPort: 80,
		},
		{
			name:     "IPv6 only",
			entry:    newEntry("attic", "attic.local.", 80, nil, []net.IP{net.ParseIP("fe80::1")}, "server=microweb"),
			wantIP:   "fe80::1",
			wantPort: 80,
		},
		{
			name:     "prefers IPv4",
			entry:    newEntry("porch", "porch.local.", 80, []net.IP{net.ParseIP("192.168.1.50")}, []net.IP{net.ParseIP("fe80::2")}, "server=microweb"),
			wantIP:   "192.168.1.50",
			wantPort: 80,
		},
		{
			name:    "other HTTP service",
			entry:   newEntry("printer", "printer.local.", 80, []net.IP{net.ParseIP("192.168.1.1")}, nil, "path=/"),
			wantNil: true,
		},
		{
			name:    "no address",
			entry:   newEntry("ghost", "ghost.local.", 80, nil, nil, "server=microweb"),
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}
			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want device")
			}
			if device.IP != tt.wantIP {
				t.Errorf("device.IP = %v, want %v", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("device.Port = %v, want %v", device.Port, tt.wantPort)
			}
			if device.Instance != tt.entry.Instance || device.Hostname != tt.entry.HostName {
				t.Errorf("device = %+v, want instance %q host %q", device, tt.entry.Instance, tt.entry.HostName)
			}
			if time.Since(device.DiscoveredAt) > time.Second {
				t.Errorf("device.DiscoveredAt is not recent: %v", device.DiscoveredAt)
			}
		})
	}
}

func TestScanner_AllIncludesOtherServices(t *testing.T) {
	scanner := NewScanner()
	scanner.All = true

	entry := newEntry("printer", "printer.local.", 631, []net.IP{net.ParseIP("192.168.1.1")}, nil)
	if device := scanner.parseServiceEntry(entry); device == nil {
		t.Fatal("parseServiceEntry() = nil with All set")
	}
}

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{"path=/www", "srcvers=v1", "flag", "psk=a=b", "=orphan"})
	want := map[string]string{
		"path":    "/www",
		"srcvers": "v1",
		"flag":    "",
		"psk":     "a=b",
	}

	if len(got) != len(want) {
		t.Errorf("parseTXT() has %d entries, want %d: %v", len(got), len(want), got)
	}
	for key, value := range want {
		if got[key] != value {
			t.Errorf("parseTXT()[%q] = %q, want %q", key, got[key], value)
		}
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
	if scanner.All {
		t.Error("scanner.All should default to false")
	}
}

// Note: live mDNS discovery needs multicast on the test host and is not
// covered here.
