package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/muurk/microweb/internal/webserver"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]string
	}{
		{
			name:    "all keys",
			content: "ssid=home\npsk=secret\ntimeOn=750\n",
			want:    map[string]string{"ssid": "home", "psk": "secret", "timeOn": "750"},
		},
		{
			name:    "split on first equals",
			content: "psk=a=b=c\n",
			want:    map[string]string{"psk": "a=b=c"},
		},
		{
			name:    "blank lines and CRLF",
			content: "ssid=home\r\n\r\n\ntimeOn=100",
			want:    map[string]string{"ssid": "home", "timeOn": "100"},
		},
		{
			name:    "empty value",
			content: "psk=\n",
			want:    map[string]string{"psk": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.cfg")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			data := webserver.TemplateData{"ssid": "old", "untouched": 1}
			if err := Load(path, data); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			for k, v := range tt.want {
				if data[k] != v {
					t.Errorf("data[%q] = %v, want %q", k, data[k], v)
				}
			}
			if data["untouched"] != 1 {
				t.Error("Load() should leave unrelated keys alone")
			}
		})
	}
}

func TestLoadParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.cfg")
	if err := os.WriteFile(path, []byte("ssid=home\ngarbage\ntimeOn=1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	data := webserver.TemplateData{}
	err := Load(path, data)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load() error = %v, want *ParseError", err)
	}
	if pe.Line != 2 || pe.Text != "garbage" {
		t.Errorf("ParseError = %+v, want line 2", pe)
	}
	if !IsParseError(err) {
		t.Error("IsParseError() = false")
	}
	if data["ssid"] != "home" {
		t.Error("pairs before the bad line should be kept")
	}
}

func TestLoadMissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "none.cfg"), webserver.TemplateData{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
	if IsParseError(err) {
		t.Error("a missing file is not a parse error")
	}
}

func TestSaveWritesKeysInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.cfg")
	data := webserver.TemplateData{"timeOn": 500, "ssid": "home", "psk": "p=w", "extra": "x"}

	if err := Save(path, data, Keys); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "ssid=home\npsk=p=w\ntimeOn=500\n"
	if string(raw) != want {
		t.Errorf("file = %q, want %q", raw, want)
	}
	if !Exists(path) {
		t.Error("Exists() = false after Save()")
	}
	if Exists(path + ".tmp") {
		t.Error("temporary file left behind")
	}

	reloaded := webserver.TemplateData{}
	if err := Load(path, reloaded); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reloaded["psk"] != "p=w" || reloaded["timeOn"] != "500" {
		t.Errorf("reloaded = %v", reloaded)
	}
}

func TestSaveRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data webserver.TemplateData
		keys []string
	}{
		{"newline in value", webserver.TemplateData{"ssid": "a\nb"}, []string{"ssid"}},
		{"equals in key", webserver.TemplateData{}, []string{"a=b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.cfg")
			if err := Save(path, tt.data, tt.keys); err == nil {
				t.Fatal("Save() error = nil")
			}
			if Exists(path) {
				t.Error("nothing should be written on error")
			}
		})
	}
}
