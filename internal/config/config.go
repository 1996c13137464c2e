package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/microweb/internal/webserver"
)

const (
	appName     = "microweb"
	configFile  = "config.yaml"
	localConfig = "microweb.yaml"

	// CurrentVersion is the only configuration version this build reads.
	CurrentVersion = 1
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// Config represents the entire configuration file.
type Config struct {
	Version  int          `yaml:"version"`
	Server   ServerConfig `yaml:"server"`
	MDNS     MDNSConfig   `yaml:"mdns"`
	Device   DeviceConfig `yaml:"device"`
	LogLevel string       `yaml:"log_level"`
}

// ServerConfig configures the HTTP listener and static file serving.
type ServerConfig struct {
	Host           string               `yaml:"host"`
	Port           int                  `yaml:"port"`
	DocPath        string               `yaml:"doc_path"`        // URL prefix for static files
	WebRoot        string               `yaml:"web_root"`        // Directory static files are served from
	ReadTimeout    Duration             `yaml:"read_timeout"`    // Per-read deadline on a connection
	WriteTimeout   Duration             `yaml:"write_timeout"`   // Per-write deadline on a connection
	RequestTimeout Duration             `yaml:"request_timeout"` // Longest time to read one request
	PollInterval   Duration             `yaml:"poll_interval"`   // Accept wait per serve loop iteration
	MaxLineBytes   int                  `yaml:"max_line_bytes"`  // Longest request or header line
	MaxBodyBytes   int                  `yaml:"max_body_bytes"`  // Largest POST body
	MIMETypes      []webserver.MIMEType `yaml:"mime_types,omitempty"`
}

// MDNSConfig controls the LAN announcement of the server.
type MDNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"` // Service instance name, e.g. "microweb-kitchen"
}

// DeviceConfig configures the relay application served by the device.
type DeviceConfig struct {
	SettingsFile string   `yaml:"settings_file"` // key=value file holding ssid, psk, timeOn
	RelayPulse   Duration `yaml:"relay_pulse"`   // Pulse length used until timeOn is saved
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"500ms\": %w", value.Line, err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Host:           "",
			Port:           80,
			DocPath:        webserver.DefaultDocPath,
			WebRoot:        "./www",
			ReadTimeout:    Duration{webserver.DefaultReadTimeout},
			WriteTimeout:   Duration{webserver.DefaultWriteTimeout},
			RequestTimeout: Duration{webserver.DefaultRequestTimeout},
			PollInterval:   Duration{webserver.DefaultPollInterval},
			MaxLineBytes:   webserver.DefaultMaxLineBytes,
			MaxBodyBytes:   webserver.DefaultMaxBodyBytes,
		},
		MDNS: MDNSConfig{
			Enabled:  true,
			Instance: appName,
		},
		Device: DeviceConfig{
			SettingsFile: "config.cfg",
			RelayPulse:   Duration{500 * time.Millisecond},
		},
		LogLevel: "info",
	}
}

// Validate checks every field and reports all problems found.
func (c *Config) Validate() error {
	var problems []string
	if c.Version != CurrentVersion {
		problems = append(problems, fmt.Sprintf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.DocPath, "/") {
		problems = append(problems, fmt.Sprintf("server.doc_path %q must start with '/'", c.Server.DocPath))
	}
	if c.Server.WebRoot == "" {
		problems = append(problems, "server.web_root must not be empty")
	}
	if c.Server.ReadTimeout.Duration <= 0 {
		problems = append(problems, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout.Duration <= 0 {
		problems = append(problems, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout.Duration < c.Server.ReadTimeout.Duration {
		problems = append(problems, "server.request_timeout must not be shorter than server.read_timeout")
	}
	if c.Server.PollInterval.Duration <= 0 {
		problems = append(problems, "server.poll_interval must be positive (a zero-wait poll is not allowed)")
	}
	if c.Server.MaxLineBytes < 16 {
		problems = append(problems, "server.max_line_bytes must be at least 16")
	}
	if c.Server.MaxBodyBytes < 0 {
		problems = append(problems, "server.max_body_bytes must not be negative")
	}
	for i, m := range c.Server.MIMETypes {
		if m.Suffix == "" || m.ContentType == "" {
			problems = append(problems, fmt.Sprintf("server.mime_types[%d] needs both suffix and content_type", i))
		}
	}
	if c.MDNS.Enabled && c.MDNS.Instance == "" {
		problems = append(problems, "mdns.instance must be set when mdns is enabled")
	}
	if c.Device.SettingsFile == "" {
		problems = append(problems, "device.settings_file must not be empty")
	}
	if c.Device.RelayPulse.Duration <= 0 {
		problems = append(problems, "device.relay_pulse must be positive")
	}

	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// WebServer converts the server section into a webserver.Config serving
// files from the web root directory.
func (c *Config) WebServer() webserver.Config {
	return webserver.Config{
		Host:           c.Server.Host,
		WebRoot:        os.DirFS(c.Server.WebRoot),
		DocPath:        c.Server.DocPath,
		ReadTimeout:    c.Server.ReadTimeout.Duration,
		WriteTimeout:   c.Server.WriteTimeout.Duration,
		RequestTimeout: c.Server.RequestTimeout.Duration,
		PollInterval:   c.Server.PollInterval.Duration,
		MaxLineBytes:   c.Server.MaxLineBytes,
		MaxBodyBytes:   c.Server.MaxBodyBytes,
		MIMETypes:      webserver.DefaultMIMETypes.With(c.Server.MIMETypes...),
	}
}

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/microweb or $HOME/.config/microweb
//   - macOS: $HOME/.config/microweb
//   - Windows: %LOCALAPPDATA%\microweb
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && runtime.GOOS != "darwin" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// Locate returns the configuration path to use. An explicit path always
// wins; otherwise microweb.yaml in the working directory is preferred over
// the per-user file.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the configuration at path. A missing file yields Default().
// Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path atomically.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := c.Validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# microweb configuration
# Durations use Go syntax ("500ms", "2s"). Wi-Fi credentials live in the
# device settings file (device.settings_file), not here.

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
