// Package logging provides structured logging for the microweb server.
//
// This package wraps a package-global zap logger with convenience functions
// for the request pipeline. Logging is silent until Initialize is called with
// a level or MICROWEB_LOG_LEVEL is set, so library code can log freely without
// producing output in tests or one-shot CLI commands.
//
// # Log Levels
//
//   - Debug: dropped requests, raw bytes, connection open/close
//   - Info: request lines, response status lines, lifecycle events
//   - Warn: template and file streaming failures, recovered handler panics
//   - Error: listener failures
//
// # Structured Logging
//
//	logging.Info("Relay pulse started",
//	    zap.Duration("time_on", 500*time.Millisecond),
//	)
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
package logging
