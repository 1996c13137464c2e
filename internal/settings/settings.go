// Package settings persists the device's user-editable values (Wi-Fi
// credentials and relay pulse length) in a small key=value file.
//
// The file holds one pair per line, split on the first '=':
//
//	ssid=home
//	psk=secret=with=equals
//	timeOn=500
//
// Values are stored as strings. Callers that need numbers convert them
// where they are used.
package settings

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/muurk/microweb/internal/logging"
	"github.com/muurk/microweb/internal/webserver"
	"go.uber.org/zap"
)

// Well-known keys.
const (
	KeySSID   = "ssid"
	KeyPSK    = "psk"
	KeyTimeOn = "timeOn"
)

// Keys is the order in which Save writes the well-known keys.
var Keys = []string{KeySSID, KeyPSK, KeyTimeOn}

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// ParseError reports a line that is not a key=value pair.
type ParseError struct {
	Path string
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: expected key=value, got %q", e.Path, e.Line, e.Text)
}

// Load reads path and stores every pair into data, overwriting existing
// keys. Blank lines are skipped. Pairs read before a malformed line are
// kept in data.
func Load(path string, data webserver.TemplateData) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	loaded := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return &ParseError{Path: path, Line: lineNo, Text: line}
		}
		data[key] = value
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	logging.Debug("Settings loaded", zap.String("path", path), zap.Int("keys", loaded))
	return nil
}

// Exists reports whether a settings file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Save writes the given keys of data to path in order, replacing the file
// atomically. Keys missing from data are written with an empty value.
func Save(path string, data webserver.TemplateData, keys []string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	var buf bytes.Buffer
	for _, key := range keys {
		if strings.ContainsAny(key, "=\n") {
			return fmt.Errorf("invalid settings key %q", key)
		}
		value := ""
		if v, ok := data[key]; ok && v != nil {
			value = fmt.Sprint(v)
		}
		if strings.Contains(value, "\n") {
			return fmt.Errorf("value for %q contains a newline", key)
		}
		fmt.Fprintf(&buf, "%s=%s\n", key, value)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write temporary settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings: %w", err)
	}

	logging.Info("Settings saved", zap.String("path", path), zap.Strings("keys", keys))
	return nil
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
