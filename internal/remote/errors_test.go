package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
)

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{
			name:          "deadline",
			err:           &url.Error{Op: "Get", URL: "http://x", Err: os.ErrDeadlineExceeded},
			wantType:      ErrTypeTimeout,
			wantRetryable: true,
		},
		{
			name:          "refused",
			err:           &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
			wantType:      ErrTypeConnectionRefused,
			wantRetryable: true,
		},
		{
			name:          "dns",
			err:           &url.Error{Op: "Get", URL: "http://x", Err: &net.DNSError{Err: "no such host", Name: "x"}},
			wantType:      ErrTypeDNS,
			wantRetryable: false,
		},
		{
			name:          "other",
			err:           errors.New("connection reset"),
			wantType:      ErrTypeNetwork,
			wantRetryable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := classifyNetworkError("request failed", tt.err)
			if de.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", de.Type, tt.wantType)
			}
			if de.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", de.Retryable, tt.wantRetryable)
			}
		})
	}
}

func TestHTTPErrorRetryable(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{400, false},
		{404, false},
		{500, true},
		{501, false},
		{503, true},
		{505, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			if got := IsRetryable(newHTTPError(tt.code, "")); got != tt.want {
				t.Errorf("IsRetryable(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestDeviceErrorWrapping(t *testing.T) {
	de := classifyNetworkError("dial failed", context.DeadlineExceeded)
	wrapped := fmt.Errorf("pulse: %w", de)

	if !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("errors.Is should reach the underlying error")
	}
	if !IsRetryable(wrapped) {
		t.Error("IsRetryable() should see through wrapping")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("IsRetryable() of a plain error should be false")
	}
	if got := de.Error(); got != "Timeout: dial failed (caused by: context deadline exceeded)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestTroubleshooting(t *testing.T) {
	if hints := Troubleshooting(errors.New("plain")); hints != nil {
		t.Errorf("Troubleshooting(plain) = %v, want nil", hints)
	}
	if hints := Troubleshooting(newValidationError("bad")); hints != nil {
		t.Errorf("Troubleshooting(validation) = %v, want nil", hints)
	}
	for _, et := range []ErrorType{ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS, ErrTypeHTTP} {
		if hints := Troubleshooting(&DeviceError{Type: et}); len(hints) == 0 {
			t.Errorf("Troubleshooting(%v) returned no hints", et)
		}
	}
}
