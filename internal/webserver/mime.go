package webserver

import "strings"

// DefaultContentType is used when no MIME table entry matches a file name.
const DefaultContentType = "text/html"

// MIMEType maps a file-name suffix to a content type.
type MIMEType struct {
	Suffix      string `yaml:"suffix"`
	ContentType string `yaml:"content_type"`
}

// MIMETable is searched in declaration order; the first matching suffix wins.
type MIMETable []MIMEType

// DefaultMIMETypes is the built-in table. Templates (.p.html) and plain
// .html files fall through to DefaultContentType.
var DefaultMIMETypes = MIMETable{
	{Suffix: ".css", ContentType: "text/css"},
	{Suffix: ".jpg", ContentType: "image/jpeg"},
	{Suffix: ".jpeg", ContentType: "image/jpeg"},
	{Suffix: ".png", ContentType: "image/png"},
	{Suffix: ".gif", ContentType: "image/gif"},
	{Suffix: ".svg", ContentType: "image/svg+xml"},
	{Suffix: ".ico", ContentType: "image/x-icon"},
	{Suffix: ".js", ContentType: "application/javascript"},
	{Suffix: ".json", ContentType: "application/json"},
	{Suffix: ".txt", ContentType: "text/plain"},
}

// ContentType returns the content type for name.
func (t MIMETable) ContentType(name string) string {
	for _, m := range t {
		if m.Suffix != "" && strings.HasSuffix(name, m.Suffix) {
			return m.ContentType
		}
	}
	return DefaultContentType
}

// With returns a new table with extra appended after the entries of t.
func (t MIMETable) With(extra ...MIMEType) MIMETable {
	out := make(MIMETable, 0, len(t)+len(extra))
	out = append(out, t...)
	return append(out, extra...)
}
