// Package ui renders the microweb CLI's terminal output with Lip Gloss and
// Bubble Tea.
//
// Components follow a "render once and exit" pattern:
//
//   - Header: banner with the command and its ordered parameters
//   - RenderRoutes: the table of registered handlers
//   - Result: success, warning, or failure box with troubleshooting tips
//   - RunTask: a spinner shown while blocking work (an mDNS scan) runs
//   - ConfirmOverwrite: yes/no prompt before replacing a file
//
// When stdout is not a terminal, RunTask and RenderOnce skip Bubble Tea and
// print plainly, so output can be piped.
//
// # Logging Integration
//
// Logging is controlled by MICROWEB_LOG_LEVEL. When it is unset, zap is
// silent and only this package's output reaches the terminal.
package ui
