// Package config loads and saves the microweb server configuration.
//
// The configuration is a YAML file. Every field has a default, so a missing
// file or a file that sets only a few keys is valid:
//
//	version: 1
//	server:
//	  port: 8080
//	  web_root: ./www
//	log_level: debug
//
// # Configuration File Location
//
// Locate picks the file in this order:
//   - the path given with --config
//   - microweb.yaml in the working directory
//   - $XDG_CONFIG_HOME/microweb/config.yaml or $HOME/.config/microweb/config.yaml
//
// # Durations
//
// Timeouts are written as Go duration strings ("500ms", "2s").
//
// # Thread Safety
//
// Save serializes writers with a mutex and replaces the file atomically
// (temporary file plus rename).
package config
