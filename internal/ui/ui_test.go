package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestHeaderRenderKeepsParamOrder(t *testing.T) {
	out := NewHeader("microweb", "microweb serve",
		Param{"Listening", "0.0.0.0:80"},
		Param{"Web root", "./www"},
		Param{"Doc path", "/"},
	).SetWidth(80).Render()

	for _, want := range []string{"MICROWEB", "microweb serve", "0.0.0.0:80", "./www"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Listening") > strings.Index(out, "Web root") {
		t.Error("params rendered out of order")
	}
}

func TestResultRender(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   []string
	}{
		{
			name:   "success",
			result: NewSuccessResult("Configuration written", Param{"Path", "microweb.yaml"}),
			want:   []string{"SUCCESS", "Configuration written", "microweb.yaml"},
		},
		{
			name:   "failure",
			result: NewFailureResult("Scan failed", errors.New("no multicast"), "Check the firewall"),
			want:   []string{"FAILED", "Error: no multicast", "Check the firewall"},
		},
		{
			name:   "warning",
			result: NewWarningResult("No devices found"),
			want:   []string{"WARNING", "No devices found"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.result.SetWidth(80).Render()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Render() missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestRenderRoutes(t *testing.T) {
	out := RenderRoutes(map[string][]string{
		"POST": {"/settings"},
		"GET":  {"/pulse", "/settings"},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("RenderRoutes() = %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "GET") || !strings.Contains(lines[0], "/pulse") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[2], "POST") {
		t.Errorf("last line = %q", lines[2])
	}

	if out := RenderRoutes(nil); !strings.Contains(out, "no handlers") {
		t.Errorf("RenderRoutes(nil) = %q", out)
	}
}

func TestConfirmOverwrite(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"y\n", false},
		{"no\n", false},
		{"", false},
		{"yes", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			if got := ConfirmOverwrite(strings.NewReader(tt.input), &out, "microweb.yaml"); got != tt.want {
				t.Errorf("ConfirmOverwrite(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "microweb.yaml") {
				t.Error("prompt should name the file")
			}
		})
	}
}

func TestTaskModel(t *testing.T) {
	workErr := errors.New("boom")
	m := NewTaskModel("Scanning", func() error { return workErr })

	if view := m.View(); !strings.Contains(view, "Scanning") {
		t.Errorf("View() = %q, want label", view)
	}

	next, cmd := m.Update(taskDoneMsg{err: workErr})
	if cmd == nil {
		t.Error("Update(done) should return a quit command")
	}
	done := next.(TaskModel)
	if !errors.Is(done.Err(), workErr) {
		t.Errorf("Err() = %v, want %v", done.Err(), workErr)
	}
	if done.View() != "" {
		t.Errorf("View() after done = %q", done.View())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !errors.Is(next.(TaskModel).Err(), ErrCancelled) {
		t.Errorf("Err() after Ctrl+C = %v", next.(TaskModel).Err())
	}
}

func TestRunTaskWithoutTerminal(t *testing.T) {
	// go test pipes stdout, so the work runs directly.
	ran := false
	if err := RunTask("working", func() error { ran = true; return nil }); err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}
	if !ran {
		t.Error("work did not run")
	}
}
