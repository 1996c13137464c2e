package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/muurk/microweb/internal/device"
	"github.com/muurk/microweb/internal/relay"
	"github.com/muurk/microweb/internal/webserver"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"192.168.4.16", 80, "http://192.168.4.16:80"},
		{"fe80::1", 8080, "http://[fe80::1]:8080"},
		{"kitchen.local", 81, "http://kitchen.local:81"},
	}
	for _, tt := range tests {
		if got := NewClient(tt.host, tt.port).BaseURL; got != tt.want {
			t.Errorf("NewClient(%q, %d).BaseURL = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
	if got := NewClientWithURL("http://x:1/").BaseURL; got != "http://x:1" {
		t.Errorf("NewClientWithURL() should trim the trailing slash, got %q", got)
	}
}

func TestPulseRequest(t *testing.T) {
	tests := []struct {
		delay time.Duration
		want  string
	}{
		{0, "/pulse"},
		{5 * time.Second, "/pulse?delay=5"},
		{2500 * time.Millisecond, "/pulse?delay=2"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			uris := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				uris <- r.URL.RequestURI()
				_, _ = w.Write([]byte("OK"))
			}))
			defer srv.Close()

			if err := NewClientWithURL(srv.URL).Pulse(context.Background(), tt.delay); err != nil {
				t.Fatalf("Pulse() error = %v", err)
			}
			if got := <-uris; got != tt.want {
				t.Errorf("request URI = %q, want %q", got, tt.want)
			}
		})
	}

	if err := NewClient("127.0.0.1", 1).Pulse(context.Background(), -time.Second); err == nil {
		t.Error("Pulse() with negative delay should fail")
	}
}

func TestUpdateSettingsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		fmt.Fprintf(w, "%s|%s|%s", r.PostForm.Get("ssid"), r.PostForm.Get("psk"), r.PostForm.Get("timeOn"))
	}))
	defer srv.Close()

	body, err := NewClientWithURL(srv.URL).UpdateSettings(context.Background(),
		Settings{SSID: "my net", PSK: "p@ss&=", TimeOn: 750 * time.Millisecond})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if body != "my net|p@ss&=|750" {
		t.Errorf("body = %q", body)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	c := NewClient("127.0.0.1", 1)
	tests := []struct {
		name string
		s    Settings
	}{
		{"zero timeOn", Settings{SSID: "a", PSK: "b"}},
		{"newline", Settings{SSID: "a\nb", PSK: "b", TimeOn: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.UpdateSettings(context.Background(), tt.s)
			var de *DeviceError
			if !errors.As(err, &de) || de.Type != ErrTypeValidation {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
}

func TestRetries(t *testing.T) {
	tests := []struct {
		name      string
		status    []int
		wantCalls int32
		wantErr   bool
	}{
		{"success first time", []int{200}, 1, false},
		{"retry on 503", []int{503, 503, 200}, 3, false},
		{"no retry on 400", []int{400}, 1, true},
		{"no retry on 505", []int{505}, 1, true},
		{"give up after max retries", []int{502, 502, 502, 502, 502}, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status[int(n)-1])
			}))
			defer srv.Close()

			c := NewClientWithURL(srv.URL)
			c.SetRetry(3, time.Millisecond)
			err := c.Pulse(context.Background(), 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Pulse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestConnectionRefusedIsClassified(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	c := NewClient("127.0.0.1", addr.Port)
	c.SetRetry(1, time.Millisecond)
	err = c.Ping(context.Background())

	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("Ping() error = %v, want *DeviceError", err)
	}
	if de.Type != ErrTypeConnectionRefused {
		t.Errorf("Type = %v, want %v", de.Type, ErrTypeConnectionRefused)
	}
	if len(Troubleshooting(err)) == 0 {
		t.Error("Troubleshooting() returned no hints")
	}
}

func TestCancelledContextStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClientWithURL(srv.URL)
	c.SetRetry(100, 20*time.Millisecond)
	start := time.Now()
	if err := c.Pulse(ctx, 0); err == nil {
		t.Fatal("Pulse() error = nil")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("retries did not stop when the context ended")
	}
}

// TestAgainstMicroweb drives a real server running the device application.
func TestAgainstMicroweb(t *testing.T) {
	app := device.New(filepath.Join(t.TempDir(), "config.cfg"), 20*time.Millisecond, &relay.LogRelay{Name: "remote-test"})
	defer app.Close()

	webRoot := fstest.MapFS{
		"index.html":      {Data: []byte("home")},
		"settings.p.html": {Data: []byte("ssid={ssid} timeOn={timeOn}")},
	}
	srv := webserver.New(webserver.Config{
		Host:         "127.0.0.1",
		WebRoot:      webRoot,
		PollInterval: 5 * time.Millisecond,
	})
	if err := app.Register(srv); err != nil {
		t.Fatal(err)
	}
	if err := srv.Begin(0); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	defer func() {
		cancel()
		<-done
		_ = srv.Close()
	}()

	c := NewClientWithURL("http://" + srv.Addr().String())
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if err := c.Pulse(ctx, 0); err != nil {
		t.Fatalf("Pulse() error = %v", err)
	}

	page, err := c.UpdateSettings(ctx, Settings{SSID: "home net", PSK: "x", TimeOn: 300 * time.Millisecond})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if page != "ssid=home net timeOn=300" {
		t.Errorf("page = %q", page)
	}

	page, err = c.SettingsPage(ctx)
	if err != nil || !strings.Contains(page, "timeOn=300") {
		t.Errorf("SettingsPage() = %q, %v", page, err)
	}
}
