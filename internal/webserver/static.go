package webserver

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// chunkSize bounds how much of a static file is held in memory at once.
const chunkSize = 64

// Index files tried, in order, for a path ending in "/".
const (
	IndexFile         = "index.html"
	IndexTemplateFile = "index" + TemplateSuffix
)

// assets resolves URL paths against the web root and writes file bodies.
type assets struct {
	fsys fs.FS
	mime MIMETable
	data TemplateData
}

// validURLPath reports whether p maps onto a legal fs.FS name. Paths with
// ".." or empty elements are rejected so nothing outside the web root can be
// named.
func validURLPath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	rel := strings.Trim(p, "/")
	return rel == "" || fs.ValidPath(rel)
}

// isFile reports whether name exists and is a regular file. The check is not
// atomic with a later open; callers treat an open failure as an I/O error.
func (a *assets) isFile(name string) bool {
	if a.fsys == nil || !fs.ValidPath(name) {
		return false
	}
	fi, err := fs.Stat(a.fsys, name)
	return err == nil && fi.Mode().IsRegular()
}

// fileName maps a handler-supplied body string to a file in the web root,
// if one exists under that name.
func (a *assets) fileName(body string) (string, bool) {
	name := strings.TrimPrefix(body, "/")
	if name == "" || !a.isFile(name) {
		return "", false
	}
	return name, true
}

// resolve maps a URL path to a file name, applying the directory index
// fallback. The second result is false when nothing can be served.
func (a *assets) resolve(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel != "" && a.isFile(rel) {
		return rel, true
	}
	if !strings.HasSuffix(urlPath, "/") {
		return "", false
	}
	dir := strings.TrimSuffix(rel, "/")
	for _, index := range []string{IndexFile, IndexTemplateFile} {
		name := path.Join(dir, index)
		if a.isFile(name) {
			return name, true
		}
	}
	return "", false
}

// render writes the body of name: templates are substituted, every other
// file is streamed verbatim.
func (a *assets) render(w io.Writer, name string) error {
	f, err := a.fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	if strings.HasSuffix(name, TemplateSuffix) {
		if err := RenderTemplate(w, f, a.data); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		return nil
	}
	if err := streamChunks(w, f); err != nil {
		return fmt.Errorf("stream %s: %w", name, err)
	}
	return nil
}

// streamChunks copies r to w through a fixed chunkSize buffer. io.Copy is
// avoided because it hands off to ReaderFrom/WriterTo, which read files in
// much larger blocks.
func streamChunks(w io.Writer, r io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
