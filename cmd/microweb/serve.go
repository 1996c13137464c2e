package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/microweb/internal/config"
	"github.com/muurk/microweb/internal/device"
	"github.com/muurk/microweb/internal/discovery"
	"github.com/muurk/microweb/internal/logging"
	"github.com/muurk/microweb/internal/relay"
	"github.com/muurk/microweb/internal/settings"
	"github.com/muurk/microweb/internal/ui"
	"github.com/muurk/microweb/internal/version"
	"github.com/muurk/microweb/internal/webserver"
)

// Serve command flags
var (
	servePort    int
	serveWebRoot string
	serveDocPath string
	serveLevel   string
	serveNoMDNS  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and the relay controller application.

The server accepts one connection at a time, answers a single request on it
and closes it. Static files are served from the web root under the document
path; files ending in .p.html are rendered as templates using the device
settings (ssid, psk, timeOn).

Settings are loaded from the device settings file (config.cfg by default) and
saved there whenever the settings form is submitted.`,
	Example: `  # Serve ./www on port 80 with defaults
  microweb serve

  # Serve a different directory on port 8080 with debug logging
  microweb serve --port 8080 --web-root ./site --log-level debug

  # Serve static files only under /static/ and skip mDNS
  microweb serve --doc-path /static/ --no-mdns`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 80, "Listen port (0 picks a free port)")
	serveCmd.Flags().StringVar(&serveWebRoot, "web-root", "", "Directory to serve static files from")
	serveCmd.Flags().StringVar(&serveDocPath, "doc-path", "", "URL prefix for static files")
	serveCmd.Flags().StringVar(&serveLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveNoMDNS, "no-mdns", false, "Do not announce the server over mDNS")
}

// loadConfig locates and loads the configuration file.
func loadConfig() (*config.Config, string, error) {
	path, err := config.Locate(configPath)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// applyServeFlags copies explicitly set flags over the file configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("web-root") {
		cfg.Server.WebRoot = serveWebRoot
	}
	if flags.Changed("doc-path") {
		cfg.Server.DocPath = serveDocPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = serveLevel
	}
	if serveNoMDNS {
		cfg.MDNS.Enabled = false
	}
	return cfg.Validate()
}

// logLevel picks the effective level: an explicit flag, then the
// environment, then the configuration file.
func logLevel(cmd *cobra.Command, cfg *config.Config) string {
	if cmd.Flags().Changed("log-level") {
		return serveLevel
	}
	if os.Getenv(logging.LogLevelEnvVar) != "" {
		return ""
	}
	return cfg.LogLevel
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	if err := logging.Initialize(logLevel(cmd, cfg)); err != nil {
		return err
	}
	defer logging.Sync()
	logging.Debug("Configuration loaded", zap.String("path", path))

	if info, err := os.Stat(cfg.Server.WebRoot); err != nil || !info.IsDir() {
		return fmt.Errorf("web root %s is not a directory", cfg.Server.WebRoot)
	}

	app := device.New(cfg.Device.SettingsFile, cfg.Device.RelayPulse.Duration, &relay.LogRelay{Name: "relay"})
	defer app.Close()
	if err := app.LoadSettings(); err != nil {
		if settings.IsParseError(err) {
			return fmt.Errorf("settings file is corrupt: %w", err)
		}
		return err
	}

	srv := webserver.New(cfg.WebServer())
	if err := app.Register(srv); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}
	if err := srv.Begin(cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer srv.Close()

	port := cfg.Server.Port
	if tcp, ok := srv.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}

	mdnsStatus := "disabled"
	if cfg.MDNS.Enabled {
		announcer := &discovery.Announcer{
			Instance: cfg.MDNS.Instance,
			Port:     port,
			DocPath:  cfg.Server.DocPath,
			Version:  version.Version,
		}
		if err := announcer.Start(); err != nil {
			logging.Warn("mDNS announcement failed, continuing without it", zap.Error(err))
			mdnsStatus = "failed: " + err.Error()
		} else {
			defer announcer.Stop()
			mdnsStatus = cfg.MDNS.Instance + "." + discovery.ServiceType + "." + discovery.ServiceDomain
		}
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("microweb", "microweb serve",
		ui.Param{Key: "Listening", Value: srv.Addr().String()},
		ui.Param{Key: "Web root", Value: cfg.Server.WebRoot},
		ui.Param{Key: "Doc path", Value: cfg.Server.DocPath},
		ui.Param{Key: "Settings", Value: cfg.Device.SettingsFile},
		ui.Param{Key: "Pulse", Value: fmt.Sprint(app.Data()[settings.KeyTimeOn]) + "ms"},
		ui.Param{Key: "mDNS", Value: mdnsStatus},
		ui.Param{Key: "Version", Value: version.Full()},
	)
	p.PrintRoutes(srv.Routes())
	p.Newline()
	p.Println(ui.NoteStyle.Render("  Press Ctrl+C to stop. Port " + strconv.Itoa(port) + "."))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = srv.Serve(ctx)
	if ctx.Err() != nil {
		logging.Info("Shutdown signal received, stopping server...")
	}
	if app.RestartPending() {
		p.PrintResult(ui.NewWarningResult("Wi-Fi settings changed",
			ui.Param{Key: "SSID", Value: fmt.Sprint(app.Data()[settings.KeySSID])},
			ui.Param{Key: "Saved to", Value: cfg.Device.SettingsFile},
		))
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
