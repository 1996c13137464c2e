package webserver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TemplateData maps placeholder names to substitution values. Values are
// rendered with fmt.Sprint. The map is owned by the caller; the server only
// reads it, so a caller may update entries between requests to change what
// templates render.
type TemplateData map[string]any

// TemplateSuffix marks files rendered through the template renderer.
const TemplateSuffix = ".p.html"

var (
	// ErrMissingPlaceholder is returned when a placeholder has no value.
	ErrMissingPlaceholder = errors.New("template: no value for placeholder")
	// ErrMalformedTemplate is returned for an empty, unclosed or unbalanced
	// brace in a template line.
	ErrMalformedTemplate = errors.New("template: malformed placeholder")
)

// RenderTemplate copies r to w line by line, replacing every {name} with
// data[name]. "{{" and "}}" produce literal braces. Each line is written as
// soon as it is substituted; on error, lines already written stay written.
func RenderTemplate(w io.Writer, r io.Reader, data TemplateData) error {
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, readErr := br.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			out, err := substitute(line, data)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			if _, err := io.WriteString(w, out); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read template: %w", readErr)
		}
	}
}

func substitute(line string, data TemplateData) (string, error) {
	if strings.IndexAny(line, "{}") < 0 {
		return line, nil
	}

	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); {
		switch c := line[i]; c {
		case '{':
			if i+1 < len(line) && line[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(line[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed '{' at column %d", ErrMalformedTemplate, i+1)
			}
			name := line[i+1 : i+1+end]
			if name == "" || strings.IndexByte(name, '{') >= 0 {
				return "", fmt.Errorf("%w: %q at column %d", ErrMalformedTemplate, "{"+name+"}", i+1)
			}
			v, ok := data[name]
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrMissingPlaceholder, name)
			}
			b.WriteString(fmt.Sprint(v))
			i += end + 2
		case '}':
			if i+1 < len(line) && line[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			return "", fmt.Errorf("%w: single '}' at column %d", ErrMalformedTemplate, i+1)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}
