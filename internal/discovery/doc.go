// Package discovery announces microweb servers over mDNS and finds them
// again from another machine.
//
// Servers advertise themselves as "_http._tcp" services with these TXT
// records:
//
//	server=microweb   marks the service as a microweb device
//	path=/            the static file prefix
//	srcvers=v1.2.0    the software version
//
// # Announcing
//
//	a := &discovery.Announcer{Instance: "kitchen", Port: 80, DocPath: "/"}
//	if err := a.Start(); err != nil {
//	    return err
//	}
//	defer a.Stop()
//
// # Scanning
//
//	devices, err := discovery.NewScanner().Scan(ctx)
//
// Scan collects responses until its timeout and ignores other HTTP
// services unless Scanner.All is set.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
