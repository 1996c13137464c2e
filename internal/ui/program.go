package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// RunOnceModel is a Bubble Tea model that renders once and exits.
type RunOnceModel struct {
	content string
}

// NewRunOnceModel creates a model that will render the given content and exit
func NewRunOnceModel(content string) RunOnceModel {
	return RunOnceModel{content: content}
}

// Init implements tea.Model
func (m RunOnceModel) Init() tea.Cmd {
	return tea.Quit
}

// Update implements tea.Model
func (m RunOnceModel) Update(tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View implements tea.Model
func (m RunOnceModel) View() string {
	return m.content
}

// RenderOnce renders content using Bubble Tea's rendering engine and exits.
// Outside a terminal the content is printed directly.
func RenderOnce(content string) error {
	if !IsTerminal() {
		_, err := fmt.Fprintln(os.Stdout, content)
		return err
	}
	p := tea.NewProgram(NewRunOnceModel(content), tea.WithOutput(os.Stdout), tea.WithInput(nil))
	_, err := p.Run()
	return err
}

// Printer provides methods for printing UI components to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command banner
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintRoutes prints the registered handlers, one method and path per line.
func (p *Printer) PrintRoutes(routes map[string][]string) {
	p.Println(RenderRoutes(routes))
}

// PrintResult prints a result box
func (p *Printer) PrintResult(r *Result) {
	p.Println(r.SetWidth(p.width).Render())
}

// RenderRoutes renders a route table. Methods are listed GET first, then
// POST, then any others in name order.
func RenderRoutes(routes map[string][]string) string {
	order := []string{"GET", "POST"}
	for method := range routes {
		if method != "GET" && method != "POST" {
			order = append(order, method)
		}
	}
	sort.Strings(order[2:])

	var lines []string
	for _, method := range order {
		for _, path := range routes[method] {
			lines = append(lines, "  "+MethodStyle.Render(method)+" "+PathStyle.Render(path))
		}
	}
	if len(lines) == 0 {
		return NoteStyle.Render("  no handlers registered")
	}
	return strings.Join(lines, "\n")
}
