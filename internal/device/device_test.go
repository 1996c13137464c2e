package device

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/muurk/microweb/internal/relay"
	"github.com/muurk/microweb/internal/webserver"
)

var webRoot = fstest.MapFS{
	"settings.p.html": {Data: []byte("<p>ssid={ssid}</p>\n<p>timeOn={timeOn}</p>\n")},
}

func newApp(t *testing.T) (*App, *relay.LogRelay, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cfg")
	r := &relay.LogRelay{Name: "test"}
	app := New(path, 50*time.Millisecond, r)
	t.Cleanup(app.Close)
	return app, r, path
}

// serve starts app on a loopback server. It returns the address and a stop
// function that waits for the serve loop to exit, after which app state can
// be inspected without racing the handlers.
func serve(t *testing.T, app *App) (string, func()) {
	t.Helper()
	srv := webserver.New(webserver.Config{
		Host:         "127.0.0.1",
		WebRoot:      webRoot,
		ReadTimeout:  time.Second,
		PollInterval: 5 * time.Millisecond,
	})
	if err := app.Register(srv); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := srv.Begin(0); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
			_ = srv.Close()
		})
	}
	t.Cleanup(stop)
	return srv.Addr().String(), stop
}

func roundTrip(t *testing.T, addr, raw string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(3 * time.Second))
	if _, err := io.WriteString(conn, raw); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	resp, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return string(resp)
}

func statusLine(resp string) string {
	line, _, _ := strings.Cut(resp, "\r\n")
	return line
}

func body(resp string) string {
	_, b, _ := strings.Cut(resp, "\r\n\r\n")
	return b
}

func post(path, form string) string {
	return "POST " + path + " HTTP/1.1\r\nContent-Length: " + strconv.Itoa(len(form)) + "\r\n\r\n" + form
}

func TestPulse(t *testing.T) {
	app, r, _ := newApp(t)
	addr, _ := serve(t, app)

	resp := roundTrip(t, addr, "GET /pulse HTTP/1.1\r\n\r\n")
	if statusLine(resp) != "HTTP/1.1 200 OK" || body(resp) != "OK" {
		t.Fatalf("response = %q", resp)
	}
	if !strings.Contains(resp, "Content-Type: text/plain\r\n") {
		t.Errorf("response should be text/plain: %q", resp)
	}
	if !r.IsOn() {
		t.Error("relay should be on right after a pulse")
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.IsOn() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.IsOn() {
		t.Error("relay still on after timeOn elapsed")
	}
}

func TestPulseWithDelay(t *testing.T) {
	app, r, _ := newApp(t)
	addr, _ := serve(t, app)

	resp := roundTrip(t, addr, "GET /pulse?delay=60 HTTP/1.1\r\n\r\n")
	if statusLine(resp) != "HTTP/1.1 200 OK" {
		t.Fatalf("response = %q", resp)
	}
	if r.IsOn() || app.pulser.Pulses() != 0 {
		t.Error("delayed pulse started immediately")
	}
}

func TestPulseRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		target string
		timeOn string
	}{
		{"non-numeric delay", "/pulse?delay=soon", "500"},
		{"negative delay", "/pulse?delay=-1", "500"},
		{"broken timeOn", "/pulse", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, r, _ := newApp(t)
			app.Data()["timeOn"] = tt.timeOn
			addr, _ := serve(t, app)

			resp := roundTrip(t, addr, "GET "+tt.target+" HTTP/1.1\r\n\r\n")
			if statusLine(resp) != "HTTP/1.1 400 Bad Request" {
				t.Errorf("status = %q, want 400", statusLine(resp))
			}
			if r.IsOn() {
				t.Error("relay switched on for a rejected request")
			}
		})
	}
}

func TestSettingsPage(t *testing.T) {
	app, _, _ := newApp(t)
	app.Data()["ssid"] = "home"
	addr, _ := serve(t, app)

	resp := roundTrip(t, addr, "GET /settings HTTP/1.0\r\n\r\n")
	want := "<p>ssid=home</p>\n<p>timeOn=50</p>\n"
	if statusLine(resp) != "HTTP/1.1 200 OK" || body(resp) != want {
		t.Errorf("response = %q, want body %q", resp, want)
	}
}

func TestSettingsPost(t *testing.T) {
	app, _, path := newApp(t)
	addr, stop := serve(t, app)

	resp := roundTrip(t, addr, post("/settings", "ssid=my+net&psk=p%40ss&timeOn=750"))
	if statusLine(resp) != "HTTP/1.1 200 OK" {
		t.Fatalf("response = %q", resp)
	}
	if want := "<p>ssid=my net</p>\n<p>timeOn=750</p>\n"; body(resp) != want {
		t.Errorf("body = %q, want %q", body(resp), want)
	}
	stop()
	if !app.RestartPending() {
		t.Error("changing Wi-Fi credentials should require a restart")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("settings not saved: %v", err)
	}
	if want := "ssid=my net\npsk=p@ss\ntimeOn=750\n"; string(raw) != want {
		t.Errorf("config.cfg = %q, want %q", raw, want)
	}

	// Reloading into a fresh app restores the saved values.
	fresh := New(path, time.Second, &relay.LogRelay{})
	defer fresh.Close()
	if err := fresh.LoadSettings(); err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if fresh.Data()["psk"] != "p@ss" || fresh.Data()["timeOn"] != "750" {
		t.Errorf("reloaded data = %v", fresh.Data())
	}
}

func TestSettingsPostSameCredentials(t *testing.T) {
	app, _, _ := newApp(t)
	app.Data()["ssid"] = "home"
	app.Data()["psk"] = "secret"
	addr, stop := serve(t, app)

	roundTrip(t, addr, post("/settings", "ssid=home&psk=secret&timeOn=900"))
	stop()
	if app.RestartPending() {
		t.Error("only timeOn changed; no restart needed")
	}
	if app.Data()["timeOn"] != "900" {
		t.Errorf("timeOn = %v, want 900", app.Data()["timeOn"])
	}
}

func TestSettingsPostRejectsBadForm(t *testing.T) {
	tests := []struct {
		name string
		form string
	}{
		{"missing psk", "ssid=a&timeOn=5"},
		{"non-numeric timeOn", "ssid=a&psk=b&timeOn=fast"},
		{"zero timeOn", "ssid=a&psk=b&timeOn=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, path := newApp(t)
			addr, _ := serve(t, app)

			resp := roundTrip(t, addr, post("/settings", tt.form))
			if statusLine(resp) != "HTTP/1.1 400 Bad Request" {
				t.Errorf("status = %q, want 400", statusLine(resp))
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Error("settings file written for a rejected form")
			}
		})
	}
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		wantErr bool
		timeOn  string
	}{
		{name: "missing file keeps defaults", content: nil, timeOn: "50"},
		{name: "saved values", content: ptr("ssid=x\npsk=y\ntimeOn=1200\n"), timeOn: "1200"},
		{name: "malformed line", content: ptr("ssid=x\nnonsense\n"), wantErr: true},
		{name: "bad timeOn", content: ptr("timeOn=-5\n"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, path := newApp(t)
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0600); err != nil {
					t.Fatal(err)
				}
			}
			err := app.LoadSettings()
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && app.Data()["timeOn"] != tt.timeOn {
				t.Errorf("timeOn = %v, want %v", app.Data()["timeOn"], tt.timeOn)
			}
		})
	}
}

func ptr(s string) *string { return &s }
