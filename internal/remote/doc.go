// Package remote is an HTTP client for microweb devices on the network.
//
// It drives the relay controller routes of a running server:
//
//	c := remote.NewClient("192.168.4.16", 80)
//	if err := c.Pulse(ctx, 0); err != nil {
//	    fmt.Println(remote.Troubleshooting(err))
//	}
//
// # Retries
//
// Timeouts, refused connections and other transient network errors are
// retried with exponential backoff. A microweb server serves a single
// connection at a time, so a refused or stalled connect often succeeds on
// the next attempt. DNS failures, 4xx answers and validation errors are not
// retried.
//
// # Errors
//
// Every failure is a *DeviceError carrying an ErrorType. Troubleshooting
// turns one into hints for the CLI.
package remote
