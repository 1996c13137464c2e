// Package device is the relay controller application served by microweb.
//
// It exposes three routes on a webserver.Server:
//
//	GET  /pulse[?delay=N]  pulse the relay now, or after N seconds
//	GET  /settings         render settings.p.html from the web root
//	POST /settings         update ssid, psk and timeOn, save them, re-render
//
// The values live in the server's template data, so settings.p.html can
// show them with {ssid}, {psk} and {timeOn} placeholders. timeOn is the
// pulse length in milliseconds.
package device

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/muurk/microweb/internal/logging"
	"github.com/muurk/microweb/internal/relay"
	"github.com/muurk/microweb/internal/settings"
	"github.com/muurk/microweb/internal/webserver"
	"go.uber.org/zap"
)

// Route paths and the settings page template.
const (
	PulsePath    = "/pulse"
	SettingsPath = "/settings"
	SettingsPage = "settings.p.html"
)

// App holds the device state shared by the route handlers. Handlers run on
// the serve loop, so the template data needs no locking.
type App struct {
	data         webserver.TemplateData
	pulser       *relay.Pulser
	settingsPath string

	restartPending bool
}

// New returns an App whose settings start empty with the given pulse length.
func New(settingsPath string, defaultPulse time.Duration, r relay.Relay) *App {
	return &App{
		data: webserver.TemplateData{
			settings.KeySSID:   "",
			settings.KeyPSK:    "",
			settings.KeyTimeOn: strconv.FormatInt(defaultPulse.Milliseconds(), 10),
		},
		pulser:       relay.NewPulser(r),
		settingsPath: settingsPath,
	}
}

// LoadSettings reads the settings file if it exists. A missing file leaves
// the defaults in place.
func (a *App) LoadSettings() error {
	if !settings.Exists(a.settingsPath) {
		logging.Info("No settings file, using defaults", zap.String("path", a.settingsPath))
		return nil
	}
	if err := settings.Load(a.settingsPath, a.data); err != nil {
		return err
	}
	if _, err := a.timeOn(); err != nil {
		return fmt.Errorf("%s: %w", a.settingsPath, err)
	}
	return nil
}

// Data returns the live template data.
func (a *App) Data() webserver.TemplateData {
	return a.data
}

// RestartPending reports whether Wi-Fi credentials changed since start.
func (a *App) RestartPending() bool {
	return a.restartPending
}

// Register installs the routes and template data on s. It must be called
// before s.Begin.
func (a *App) Register(s *webserver.Server) error {
	if err := s.SetTemplateData(a.data); err != nil {
		return err
	}
	if err := s.OnPath(PulsePath, webserver.HandlerFunc(a.handlePulse)); err != nil {
		return err
	}
	if err := s.OnPath(SettingsPath, webserver.HandlerFunc(a.handleSettings)); err != nil {
		return err
	}
	return s.OnPost(SettingsPath, webserver.HandlerFunc(a.handleSettingsPost))
}

// Close cancels pending pulses and switches the relay off.
func (a *App) Close() {
	a.pulser.Stop()
}

func (a *App) timeOn() (time.Duration, error) {
	ms, err := strconv.Atoi(fmt.Sprint(a.data[settings.KeyTimeOn]))
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("invalid timeOn %q: must be a positive number of milliseconds", fmt.Sprint(a.data[settings.KeyTimeOn]))
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (a *App) handlePulse(w *webserver.ResponseWriter, args webserver.Args) {
	length, err := a.timeOn()
	if err != nil {
		logging.Error("Cannot pulse relay", zap.Error(err))
		_ = w.Err(webserver.StatusBadRequest, "Invalid timeOn setting")
		return
	}

	delay := time.Duration(0)
	if raw, ok := args["delay"]; ok {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			_ = w.Err(webserver.StatusBadRequest, "Invalid delay")
			return
		}
		delay = time.Duration(seconds) * time.Second
	}

	if err := a.pulser.PulseAfter(delay, length); err != nil {
		_ = w.Err(webserver.StatusBadRequest, "Invalid pulse")
		return
	}
	logging.Info("Relay pulse requested",
		zap.String("remote_addr", w.RemoteAddr()),
		zap.Duration("delay", delay),
		zap.Duration("length", length))

	_ = w.OKData(webserver.StatusOK, "text/plain", "OK")
}

func (a *App) handleSettings(w *webserver.ResponseWriter, _ webserver.Args) {
	_ = w.OK(webserver.StatusOK, "text/html", SettingsPage)
}

var errMissingField = errors.New("missing form field")

func (a *App) handleSettingsPost(w *webserver.ResponseWriter, args webserver.Args) {
	ssid, psk, timeOn, err := settingsForm(args)
	if err != nil {
		logging.Debug("Rejected settings form", zap.Error(err))
		_ = w.Err(webserver.StatusBadRequest, "Invalid settings")
		return
	}

	if a.data[settings.KeySSID] != ssid || a.data[settings.KeyPSK] != psk {
		a.data[settings.KeySSID] = ssid
		a.data[settings.KeyPSK] = psk
		a.restartPending = true
		logging.Warn("Wi-Fi credentials changed; restart the device to apply them", zap.String("ssid", ssid))
	}
	a.data[settings.KeyTimeOn] = strconv.Itoa(timeOn)

	if err := settings.Save(a.settingsPath, a.data, settings.Keys); err != nil {
		logging.Error("Failed to save settings", zap.String("path", a.settingsPath), zap.Error(err))
	}

	_ = w.OK(webserver.StatusOK, "text/html", SettingsPage)
}

func settingsForm(args webserver.Args) (ssid, psk string, timeOn int, err error) {
	for _, key := range settings.Keys {
		if _, ok := args[key]; !ok {
			return "", "", 0, fmt.Errorf("%w: %s", errMissingField, key)
		}
	}
	timeOn, err = strconv.Atoi(args[settings.KeyTimeOn])
	if err != nil || timeOn <= 0 {
		return "", "", 0, fmt.Errorf("timeOn %q is not a positive integer", args[settings.KeyTimeOn])
	}
	return args[settings.KeySSID], args[settings.KeyPSK], timeOn, nil
}
