package main

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/microweb/internal/discovery"
	"github.com/muurk/microweb/internal/remote"
	"github.com/muurk/microweb/internal/ui"
)

// Remote device flags, shared by ping, pulse and settings
var (
	deviceAddr    string
	devicePort    int
	deviceTimeout time.Duration
	deviceRetries int
)

// Pulse flags
var pulseDelay time.Duration

// Settings set flags
var (
	setSSID   string
	setPSK    string
	setTimeOn time.Duration
)

func addDeviceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&deviceAddr, "device", "", "Device address as host or host:port (skips discovery)")
	cmd.Flags().IntVar(&devicePort, "port", discovery.DefaultPort, "Device HTTP port when --device has none")
	cmd.Flags().DurationVar(&deviceTimeout, "timeout", remote.DefaultTimeout, "Per-request timeout")
	cmd.Flags().IntVar(&deviceRetries, "retries", remote.DefaultMaxRetries, "Retries for failed requests")
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that a microweb server answers",
	Example: `  # Find the server with mDNS
  microweb ping

  # Address it directly
  microweb ping --device 192.168.4.16:8080`,
	RunE: runPing,
}

var pulseCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse the relay of a remote device",
	Long: `Request /pulse on a running microweb server. The relay switches on for
the timeOn saved on the device. --delay is sent in whole seconds.`,
	Example: `  # Pulse now
  microweb pulse --device 192.168.4.16

  # Pulse in 10 seconds
  microweb pulse --device kitchen.local --delay 10s`,
	RunE: runPulse,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change the settings of a remote device",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the rendered settings page",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Submit new Wi-Fi credentials and relay pulse length",
	Long: `POST the settings form to a running microweb server. All three values are
required because the server rejects partial forms. A changed SSID or PSK takes
effect after the server restarts.`,
	Example: `  microweb settings set --device 192.168.4.16 --ssid home --psk secret --time-on 750ms`,
	RunE:    runSettingsSet,
}

func init() {
	addDeviceFlags(pingCmd)
	addDeviceFlags(pulseCmd)
	pulseCmd.Flags().DurationVar(&pulseDelay, "delay", 0, "Wait this long before pulsing")

	addDeviceFlags(settingsShowCmd)
	addDeviceFlags(settingsSetCmd)
	settingsSetCmd.Flags().StringVar(&setSSID, "ssid", "", "Wi-Fi network name")
	settingsSetCmd.Flags().StringVar(&setPSK, "psk", "", "Wi-Fi passphrase")
	settingsSetCmd.Flags().DurationVar(&setTimeOn, "time-on", 0, "Relay pulse length (e.g. 500ms)")
	_ = settingsSetCmd.MarkFlagRequired("ssid")
	_ = settingsSetCmd.MarkFlagRequired("psk")
	_ = settingsSetCmd.MarkFlagRequired("time-on")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

// splitDevice turns a --device value into host and port. A value without a
// port, including a bare IPv6 address, uses defaultPort.
func splitDevice(addr string, defaultPort int) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in --device %q", addr)
	}
	return host, port, nil
}

// newDeviceClient builds a client for --device, or for the single microweb
// server found on the network when --device is not set.
func newDeviceClient(cmd *cobra.Command) (*remote.Client, error) {
	host, port, err := splitDevice(deviceAddr, devicePort)
	if err != nil {
		return nil, err
	}

	if deviceAddr == "" {
		devices, err := findDevices(cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		host, port = devices[0].IP, devices[0].Port
	}

	client := remote.NewClient(host, port)
	client.SetTimeout(deviceTimeout)
	client.SetRetry(deviceRetries, remote.DefaultRetryDelay)
	return client, nil
}

func findDevices(w io.Writer) ([]*discovery.Device, error) {
	fmt.Fprintln(w, "No --device given, scanning the network...")
	devices, err := discovery.ScanForDevices(discovery.DefaultScanTimeout)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, fmt.Errorf("no devices found, use --device to give an address")
	case 1:
		fmt.Fprintf(w, "Using %s\n\n", devices[0])
		return devices, nil
	default:
		writeDevices(w, devices)
		return nil, fmt.Errorf("%d devices found, use --device to pick one", len(devices))
	}
}

// runRemote runs work behind a spinner and reports a failure box with hints.
func runRemote(cmd *cobra.Command, label, failure string, work func(c *remote.Client) error) error {
	client, err := newDeviceClient(cmd)
	if err != nil {
		return err
	}

	err = ui.RunTask(label, func() error { return work(client) })
	if err != nil {
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintResult(ui.NewFailureResult(failure, err, remote.Troubleshooting(err)...))
		return err
	}
	return nil
}

func runPing(cmd *cobra.Command, args []string) error {
	var target string
	err := runRemote(cmd, "Contacting device...", "Device did not answer", func(c *remote.Client) error {
		target = c.BaseURL
		return c.Ping(cmd.Context())
	})
	if err != nil {
		return err
	}
	ui.NewPrinter(cmd.OutOrStdout()).PrintResult(ui.NewSuccessResult("Device is up",
		ui.Param{Key: "URL", Value: target}))
	return nil
}

func runPulse(cmd *cobra.Command, args []string) error {
	if pulseDelay < 0 {
		return fmt.Errorf("--delay must not be negative")
	}
	err := runRemote(cmd, "Sending pulse...", "Pulse failed", func(c *remote.Client) error {
		return c.Pulse(cmd.Context(), pulseDelay)
	})
	if err != nil {
		return err
	}

	when := "now"
	if pulseDelay >= time.Second {
		when = "in " + (pulseDelay / time.Second * time.Second).String()
	}
	ui.NewPrinter(cmd.OutOrStdout()).PrintResult(ui.NewSuccessResult("Pulse requested",
		ui.Param{Key: "When", Value: when}))
	return nil
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	var page string
	err := runRemote(cmd, "Fetching settings...", "Could not read settings", func(c *remote.Client) error {
		var err error
		page, err = c.SettingsPage(cmd.Context())
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), page)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	s := remote.Settings{SSID: setSSID, PSK: setPSK, TimeOn: setTimeOn}
	err := runRemote(cmd, "Saving settings...", "Settings were not saved", func(c *remote.Client) error {
		_, err := c.UpdateSettings(cmd.Context(), s)
		return err
	})
	if err != nil {
		return err
	}
	ui.NewPrinter(cmd.OutOrStdout()).PrintResult(ui.NewSuccessResult("Settings saved",
		ui.Param{Key: "SSID", Value: s.SSID},
		ui.Param{Key: "Time on", Value: s.TimeOn.String()},
	).AddDetail("Note", "Wi-Fi changes apply after the server restarts"))
	return nil
}
