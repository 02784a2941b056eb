// Package export writes assembled manuscripts to disk, as markdown or
// standalone HTML. Writes go through a temp file + rename so a crash
// never leaves a half-written manuscript behind.
package export

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const htmlShell = `<!DOCTYPE html>
<html lang="%s">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { max-width: 42em; margin: 2em auto; padding: 0 1em; font-family: Georgia, serif; line-height: 1.6; }
h1 { margin-top: 2em; }
</style>
</head>
<body>
%s</body>
</html>
`

// Exporter renders manuscript markdown and writes export files.
type Exporter struct {
	md goldmark.Markdown
}

// NewExporter creates an exporter with typographic extensions enabled.
func NewExporter() *Exporter {
	return &Exporter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// HTML renders manuscript markdown into a standalone HTML document.
func (e *Exporter) HTML(title, lang, markdown string) (string, error) {
	if lang == "" {
		lang = "tr"
	}

	var body bytes.Buffer
	if err := e.md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("failed to render manuscript: %w", err)
	}

	return fmt.Sprintf(htmlShell, lang, title, body.String()), nil
}

// WriteMarkdown writes the manuscript markdown to path atomically.
func (e *Exporter) WriteMarkdown(path, markdown string) error {
	return AtomicWriteFile(path, []byte(markdown))
}

// WriteHTML renders and writes a standalone HTML manuscript to path.
func (e *Exporter) WriteHTML(path, title, lang, markdown string) error {
	doc, err := e.HTML(title, lang, markdown)
	if err != nil {
		return err
	}
	return AtomicWriteFile(path, []byte(doc))
}
