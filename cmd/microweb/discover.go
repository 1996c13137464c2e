package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/microweb/internal/discovery"
	"github.com/muurk/microweb/internal/ui"
)

// Discover command flags
var (
	discoverTimeout time.Duration
	discoverAll     bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find microweb servers on the local network",
	Long: `Browse for _http._tcp services over mDNS and list the microweb servers
that answer. Other HTTP services are hidden unless --all is given.`,
	Example: `  # Scan for 5 seconds (default)
  microweb discover

  # Longer scan, including every HTTP service
  microweb discover --timeout 15s --all`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for answers")
	discoverCmd.Flags().BoolVar(&discoverAll, "all", false, "Include HTTP services that are not microweb servers")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if discoverTimeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = discoverTimeout
	scanner.All = discoverAll

	var devices []*discovery.Device
	label := fmt.Sprintf("Scanning for %s services (%s)...", discovery.ServiceType, discoverTimeout)
	err := ui.RunTask(label, func() error {
		var err error
		devices, err = scanner.Scan(cmd.Context())
		return err
	})

	p := ui.NewPrinter(cmd.OutOrStdout())
	if err != nil {
		p.PrintResult(ui.NewFailureResult("Scan failed", err,
			"Check that the network interface supports multicast",
			"Allow UDP port 5353 through the firewall",
		))
		return err
	}

	if len(devices) == 0 {
		p.PrintResult(ui.NewWarningResult("No devices found").
			AddDetail("Timeout", discoverTimeout.String()))
		p.Println(ui.TroubleshootingItemStyle.Render("  " + ui.BulletMarker + " Ensure the server runs without --no-mdns"))
		p.Println(ui.TroubleshootingItemStyle.Render("  " + ui.BulletMarker + " Both machines must be on the same network segment"))
		p.Println(ui.TroubleshootingItemStyle.Render("  " + ui.BulletMarker + " Try a longer --timeout"))
		return nil
	}

	writeDevices(cmd.OutOrStdout(), devices)
	return nil
}

// writeDevices prints one block per device.
func writeDevices(w io.Writer, devices []*discovery.Device) {
	fmt.Fprintf(w, "Found %d device(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Fprintf(w, "%d. %s\n", i+1, ui.PathStyle.Bold(true).Render(d.Instance))
		fmt.Fprintf(w, "   URL:      %s\n", d.DocURL())
		fmt.Fprintf(w, "   Host:     %s\n", d.Hostname)
		if v := d.Version(); v != "" {
			fmt.Fprintf(w, "   Version:  %s\n", v)
		}
		if extra := otherMetadata(d); extra != "" {
			fmt.Fprintf(w, "   %s\n", ui.NoteStyle.Render(extra))
		}
		fmt.Fprintln(w)
	}
}

// otherMetadata lists TXT keys beyond the ones shown on their own lines.
func otherMetadata(d *discovery.Device) string {
	var parts []string
	for k, v := range d.Metadata {
		switch k {
		case discovery.TXTPath, discovery.TXTVersion, discovery.TXTServer:
			continue
		}
		parts = append(parts, k+"="+v)
	}
	if len(parts) == 0 {
		return ""
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
