package remote

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the device did not answer in time
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening on the port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a hostname that does not resolve
	ErrTypeDNS
	// ErrTypeHTTP indicates an unexpected status code
	ErrTypeHTTP
	// ErrTypeValidation indicates a request rejected before it was sent
	ErrTypeValidation
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError is returned by every Client method that fails
type DeviceError struct {
	Type       ErrorType
	Message    string
	StatusCode int   // HTTP status code (ErrTypeHTTP only)
	Err        error // Underlying error (if any)
	Retryable  bool
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// classifyNetworkError sorts a transport error into a DeviceError
func classifyNetworkError(message string, err error) *DeviceError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	de := &DeviceError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}

	var dnsErr *net.DNSError
	switch {
	case os.IsTimeout(err):
		de.Type = ErrTypeTimeout
	case errors.As(err, &dnsErr):
		de.Type = ErrTypeDNS
		de.Retryable = false
	case errors.Is(err, syscall.ECONNREFUSED):
		de.Type = ErrTypeConnectionRefused
	}
	return de
}

func newHTTPError(statusCode int, body string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeHTTP,
		Message:    fmt.Sprintf("unexpected status %d: %s", statusCode, body),
		StatusCode: statusCode,
		// 501 and 505 are final answers from microweb itself.
		Retryable: statusCode >= 500 && statusCode != 501 && statusCode != 505,
	}
}

func newValidationError(message string) *DeviceError {
	return &DeviceError{Type: ErrTypeValidation, Message: message}
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// Troubleshooting returns user-facing hints for err.
func Troubleshooting(err error) []string {
	var de *DeviceError
	if !errors.As(err, &de) {
		return nil
	}

	switch de.Type {
	case ErrTypeTimeout:
		return []string{
			"Check that the device is powered on",
			"The server handles one connection at a time; retry if it was busy",
			"Try a longer --timeout",
		}
	case ErrTypeConnectionRefused:
		return []string{
			"Check that 'microweb serve' is running on the device",
			"Verify the port number (default is 80)",
		}
	case ErrTypeDNS:
		return []string{
			"Use the IP address instead of the hostname",
			"Run 'microweb discover' to find the device",
		}
	case ErrTypeHTTP:
		if de.StatusCode == 400 {
			return []string{"The device rejected the request parameters"}
		}
		return []string{"The device answered with an unexpected status"}
	case ErrTypeValidation:
		return nil
	default:
		return []string{
			"Check your network connection",
			"Ensure you are on the same network as the device",
		}
	}
}
