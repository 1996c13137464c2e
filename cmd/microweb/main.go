// Microweb is a minimal single-threaded HTTP/1.x server for small devices.
//
// It serves static files and {placeholder} templates from a web root, and
// runs the relay controller application (/pulse and /settings). Servers
// announce themselves over mDNS so other machines can find them with
// 'microweb discover'.
//
// Usage:
//
//	microweb [command] [flags]
//
// See 'microweb --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/microweb/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "microweb",
	Short: "Minimal single-threaded HTTP server for devices",
	Long: `A minimal HTTP/1.0 and HTTP/1.1 server that handles one connection at a
time. It serves static files and templates from a web root and runs the relay
controller application on /pulse and /settings.

Logging is silent unless --log-level, MICROWEB_LOG_LEVEL or log_level in the
configuration file selects a level.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Shared flags
var configPath string

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (default: ./microweb.yaml, then ~/.config/microweb/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(pulseCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
	},
}
